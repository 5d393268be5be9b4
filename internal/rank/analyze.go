package rank

import (
	"sort"

	"leadscout/internal/domain"
)

const maxSamples = 5

type Count struct {
	Name  string
	Count int
}

// Report summarizes a lead file. Job-posting and service figures cover
// LinkedIn leads only, where job ads are the main noise.
type Report struct {
	Total    int
	BySource []Count

	LinkedIn    int
	JobPostings int
	Inquiries   int
	ByService   []Count

	InquirySamples []domain.Lead
	JobSamples     []domain.Lead

	Qualified  int
	SkippedLLM int
	LLMCalled  int
}

func (r Report) JobPostingShare() float64 { return share(r.JobPostings, r.LinkedIn) }
func (r Report) InquiryShare() float64    { return share(r.Inquiries, r.LinkedIn) }

func share(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

func Analyze(leads []domain.Lead, t Tagger) Report {
	r := Report{Total: len(leads)}
	sources := map[string]int{}
	services := map[string]int{}

	for _, l := range leads {
		sources[string(l.Source)]++

		if q := l.Qualification; q != nil {
			if q.IsQualified {
				r.Qualified++
			}
			if q.SkippedLLM {
				r.SkippedLLM++
			} else {
				r.LLMCalled++
			}
		}

		if l.Source != domain.SourceLinkedIn && l.Source != domain.SourceLinkedInPublic {
			continue
		}
		r.LinkedIn++
		if LooksLikeJobPosting(l.Content) {
			r.JobPostings++
			if len(r.JobSamples) < maxSamples {
				r.JobSamples = append(r.JobSamples, l)
			}
			continue
		}
		r.Inquiries++
		for _, tag := range t.Tags(l) {
			services[tag]++
		}
		if len(r.InquirySamples) < maxSamples {
			r.InquirySamples = append(r.InquirySamples, l)
		}
	}

	r.BySource = sortedCounts(sources)
	r.ByService = sortedCounts(services)
	return r
}

// sortedCounts orders by count descending, then name.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for n, c := range m {
		out = append(out, Count{Name: n, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
