package outreach

import (
	"strconv"
	"strings"
)

// FilterCandidates narrows a candidate list by ranking range and by an
// explicit address selection. Zero bounds disable the rank filter; an
// empty selection disables the address filter. A candidate whose ranking
// does not parse as a number is excluded by an active rank filter.
func FilterCandidates(candidates []Candidate, rankMin, rankMax int, selected []string) []Candidate {
	sel := make(map[string]bool, len(selected))
	for _, s := range selected {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sel[s] = true
		}
	}

	rankFilter := rankMin > 0 || rankMax > 0
	if rankMax <= 0 {
		rankMax = 100
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(sel) > 0 && !sel[strings.ToLower(strings.TrimSpace(c.Profile.ContactEmail))] {
			continue
		}
		if rankFilter {
			rank, err := strconv.Atoi(strings.TrimSpace(c.Profile.Ranking))
			if err != nil || rank < rankMin || rank > rankMax {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
