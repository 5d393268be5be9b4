package qualify

import (
	"leadscout/internal/domain"
	"leadscout/internal/phrase"
)

const (
	reasonNonInquiry = "Content is spam/promotion/news, not inquiry"
	reasonNoSignals  = "No help-seeking phrase or inquiry signals detected"
)

// Prefilter decides from the text alone whether a lead is worth an LLM call.
// When send is false, v is the final (negative) result. It never produces a
// positive verdict.
func Prefilter(text string) (v domain.Qualification, send bool) {
	if text == "" ||
		phrase.ObviousSpam.AtLeast(text, phrase.NonInquiryThreshold) ||
		phrase.ObviousHiring.AtLeast(text, phrase.NonInquiryThreshold) {
		return skipped(reasonNonInquiry), false
	}
	if phrase.HelpSeeking.Any(text) ||
		phrase.ImplicitSignals.AtLeast(text, phrase.ImplicitSignalThreshold) {
		return domain.Qualification{}, true
	}
	return skipped(reasonNoSignals), false
}

func skipped(reason string) domain.Qualification {
	return domain.Qualification{
		Reason:       reason,
		ServiceMatch: []string{},
		SkippedLLM:   true,
	}
}
