package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestEnrichedCSVRoundTrip(t *testing.T) {
	profile := model.Profile{
		ContactName:       "Jane Doe",
		ContactEmail:      "jane@acme.example.com",
		Revenue:           "$12M",
		EmployeeCount:     "85",
		FoundingYear:      "2009",
		TargetIndustries:  []string{"Manufacturing", "Logistics"},
		TargetCompanySize: []string{"50-200"},
		TargetGeography:   []string{"Southeast US"},
		ClientExamples: []model.ClientExample{
			{Name: "Acme Corp", Website: "https://acme.example.com"},
			{Name: "No Site Inc"},
		},
		ServiceFocus: []string{"Supply chain consulting"},
		Ranking:      "85",
		Reasoning:    "Strong fit.",
	}
	rows := []EnrichedRow{
		{Company: model.Company{Name: "Acme Corp", URL: "https://acme.example.com"}, Profile: profile},
		{Company: model.Company{Name: "Empty Co", URL: "https://empty.example.com"}, Profile: model.DefaultProfile()},
	}

	path := filepath.Join(t.TempDir(), "enriched.csv")
	require.NoError(t, ExportEnrichedCSV(rows, path))

	got, err := ImportEnrichedCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[1], got[1])
}

func TestExportLedgerCSV(t *testing.T) {
	sent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := []model.LedgerRow{
		{Company: "Acme Corp", Email: "jane@acme.example.com", ContactName: "Jane Doe",
			LastSubject: "Quick question", Wave1SentAt: &sent, UpdatedAt: sent},
	}

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, ExportLedgerCSV(rows, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme Corp")
	assert.Contains(t, string(data), "jane@acme.example.com")
}

func TestClientExamplesJoinSplit(t *testing.T) {
	examples := []model.ClientExample{
		{Name: "Acme Corp", Website: "https://acme.example.com"},
		{Name: "No Site Inc"},
	}

	joined := joinClientExamples(examples)
	assert.Equal(t, "Acme Corp (https://acme.example.com); No Site Inc", joined)
	assert.Equal(t, examples, splitClientExamples(joined))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, splitList(""))
	assert.Equal(t, []string{}, splitList("   "))
	assert.Equal(t, []string{"a", "b"}, splitList("a; b"))
	assert.Equal(t, []string{"solo"}, splitList("solo"))
}
