package export

import (
	"sort"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// Stats summarizes a canonical directory.
type Stats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	ByState    map[string]int `json:"by_state"`
	Suppressed int            `json:"merge_suppressed"`
	Disputed   int            `json:"cert_disputed"`

	// MultiSource counts records corroborated by more than one source.
	MultiSource int `json:"multi_source"`
}

// Summarize computes directory statistics by organization type and state.
func Summarize(records []model.CanonicalRecord) Stats {
	s := Stats{
		Total:   len(records),
		ByType:  make(map[string]int),
		ByState: make(map[string]int),
	}
	for _, rec := range records {
		s.ByType[string(rec.OrgType)]++
		state := rec.Address.State
		if state == "" {
			state = "unknown"
		}
		s.ByState[state]++
		if rec.MergeSuppressed {
			s.Suppressed++
		}
		if rec.CertDisputed {
			s.Disputed++
		}
		if len(rec.SourceLineage) > 1 {
			s.MultiSource++
		}
	}
	return s
}

// States returns the state keys of a summary in sorted order, for stable
// tabular output.
func (s Stats) States() []string {
	states := make([]string, 0, len(s.ByState))
	for state := range s.ByState {
		states = append(states, state)
	}
	sort.Strings(states)
	return states
}
