package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func rankedCandidate(company, email, ranking string) Candidate {
	p := model.DefaultProfile()
	p.ContactEmail = email
	p.Ranking = ranking
	return Candidate{Company: company, Profile: p}
}

func TestFilterCandidatesRankBounds(t *testing.T) {
	candidates := []Candidate{
		rankedCandidate("Low", "low@x.example.com", "20"),
		rankedCandidate("Mid", "mid@x.example.com", "60"),
		rankedCandidate("High", "high@x.example.com", "95"),
	}

	out := FilterCandidates(candidates, 50, 90, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "Mid", out[0].Company)
}

func TestFilterCandidatesNoFilterPassesAll(t *testing.T) {
	candidates := []Candidate{
		rankedCandidate("A", "a@x.example.com", "20"),
		rankedCandidate("B", "b@x.example.com", ""),
	}

	out := FilterCandidates(candidates, 0, 0, nil)
	assert.Len(t, out, 2)
}

func TestFilterCandidatesUnparseableRankExcluded(t *testing.T) {
	candidates := []Candidate{
		rankedCandidate("A", "a@x.example.com", "high"),
		rankedCandidate("B", "b@x.example.com", ""),
		rankedCandidate("C", "c@x.example.com", "75"),
	}

	out := FilterCandidates(candidates, 50, 0, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "C", out[0].Company)
}

func TestFilterCandidatesSelection(t *testing.T) {
	candidates := []Candidate{
		rankedCandidate("A", "a@x.example.com", "80"),
		rankedCandidate("B", "b@x.example.com", "80"),
	}

	out := FilterCandidates(candidates, 0, 0, []string{" B@X.Example.Com "})
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].Company)
}

func TestFilterCandidatesSelectionAndRankCombine(t *testing.T) {
	candidates := []Candidate{
		rankedCandidate("A", "a@x.example.com", "80"),
		rankedCandidate("B", "b@x.example.com", "30"),
	}

	out := FilterCandidates(candidates, 50, 0, []string{"a@x.example.com", "b@x.example.com"})
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Company)
}
