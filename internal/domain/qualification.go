package domain

// Qualification is the LLM verdict for one lead. Every lead sent through
// the qualifier gets one, including on failure (Error set).
type Qualification struct {
	IsQualified     bool     `json:"is_qualified"`
	ConfidenceScore float64  `json:"confidence_score"`
	Reason          string   `json:"reason"`
	ServiceMatch    []string `json:"service_match"`
	Error           string   `json:"error,omitempty"`

	SkippedLLM  bool   `json:"skipped_llm,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
}

// Failed builds the negative result carried by leads whose classification
// could not complete.
func Failed(reason, errText string) Qualification {
	return Qualification{
		Reason:       reason,
		ServiceMatch: []string{},
		Error:        errText,
	}
}
