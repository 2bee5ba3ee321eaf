package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type stageResult struct {
	text string
	err  error
}

// scriptedStage returns its results in order, repeating the last one once
// the script runs out.
type scriptedStage struct {
	name    string
	key     string
	results []stageResult
	calls   int
}

func (s *scriptedStage) Name() string      { return s.name }
func (s *scriptedStage) OutputKey() string { return s.key }

func (s *scriptedStage) Execute(_ context.Context, _ *Context) (*StageOutput, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return &StageOutput{
		Text:  r.text,
		Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func fastRunner(stages []Stage, fallback Stage, st store.Store, maxRetries int) *Runner {
	r := NewRunner(stages, fallback, st, maxRetries)
	r.backoffUnit = time.Millisecond
	return r
}

func TestEnrichRowFirstAttemptSucceeds(t *testing.T) {
	st := newTestStore(t)
	stage := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{{text: "```json\n{\"revenue\": \"$12M\"}\n```"}},
	}

	r := fastRunner([]Stage{stage}, nil, st, 3)
	profile, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	assert.Equal(t, "$12M", profile.Revenue)
	assert.Equal(t, 1, stage.calls)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 1, runs[0].Attempts)
	require.NotNil(t, runs[0].Profile)
	assert.Equal(t, "$12M", runs[0].Profile.Revenue)
}

func TestEnrichRowRetriesWholeSequence(t *testing.T) {
	st := newTestStore(t)
	first := &scriptedStage{
		name: "leadership", key: "leadership",
		results: []stageResult{{text: `{"contact_name": "Jane Doe"}`}},
	}
	flaky := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{
			{err: eris.New("upstream timeout")},
			{err: eris.New("upstream timeout")},
			{text: `{"revenue": "$12M"}`},
		},
	}

	r := fastRunner([]Stage{first, flaky}, nil, st, 3)
	profile, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	// Every attempt restarts from the first stage.
	assert.Equal(t, 3, first.calls)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, "Jane Doe", profile.ContactName)
	assert.Equal(t, "$12M", profile.Revenue)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Attempts)
}

func TestEnrichRowExhaustsRetries(t *testing.T) {
	st := newTestStore(t)
	broken := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{{err: eris.New("permanent outage")}},
	}

	r := fastRunner([]Stage{broken}, nil, st, 2)
	profile, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, broken.calls)
	assert.Equal(t, model.DefaultProfile(), profile)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

func TestEnrichRowFallbackOnEmptyAggregate(t *testing.T) {
	st := newTestStore(t)
	useless := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{{text: "I could not find anything."}},
	}
	fallback := &scriptedStage{
		name: "fallback", key: "",
		results: []stageResult{{text: `{"revenue": "$5M", "contact_name": "Jane Doe"}`}},
	}

	r := fastRunner([]Stage{useless}, fallback, st, 3)
	profile, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, "$5M", profile.Revenue)
	assert.Equal(t, "Jane Doe", profile.ContactName)
}

func TestEnrichRowUnparseableOutputIsNotAFault(t *testing.T) {
	st := newTestStore(t)
	vague := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{{text: "No structured data available."}},
	}

	r := fastRunner([]Stage{vague}, nil, st, 3)
	profile, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	// One attempt, no retries: a declined answer completes the run with
	// an empty profile.
	assert.Equal(t, 1, vague.calls)
	assert.True(t, profile.Empty())

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestEnrichRowAuditsEveryStage(t *testing.T) {
	st := newTestStore(t)
	a := &scriptedStage{name: "leadership", key: "leadership",
		results: []stageResult{{text: `{"contact_name": "Jane"}`}}}
	b := &scriptedStage{name: "financials", key: "financials",
		results: []stageResult{{text: "nothing here"}}}

	r := fastRunner([]Stage{a, b}, nil, st, 3)
	_, err := r.EnrichRow(context.Background(), model.Company{Name: "Acme"}, "")
	require.NoError(t, err)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	logs, err := st.ListStageLogs(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "nothing here", logs[1].RawOutput)
	assert.Equal(t, 10, logs[0].Usage.InputTokens)
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	st := newTestStore(t)
	stage := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{
			{text: `{"revenue": "$12M"}`},
			{text: `{"revenue": "$7M"}`},
		},
	}

	r := fastRunner([]Stage{stage}, nil, st, 1)
	companies := []model.Company{{Name: "Acme"}, {Name: "Beta"}}

	rows := r.RunBatch(context.Background(), companies, "", 1)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0].Company.Name)
	assert.Equal(t, "$12M", rows[0].Profile.Revenue)
	assert.Equal(t, "Beta", rows[1].Company.Name)
	assert.Equal(t, "$7M", rows[1].Profile.Revenue)
}

func TestRunBatchStopsOnCancelledContext(t *testing.T) {
	st := newTestStore(t)
	stage := &scriptedStage{
		name: "financials", key: "financials",
		results: []stageResult{{text: `{"revenue": "$12M"}`}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := fastRunner([]Stage{stage}, nil, st, 1)
	rows := r.RunBatch(ctx, []model.Company{{Name: "Acme"}}, "", 1)

	require.Len(t, rows, 1)
	assert.Equal(t, model.DefaultProfile(), rows[0].Profile)
	assert.Equal(t, 0, stage.calls)
}

func TestFullPipelineOffline(t *testing.T) {
	st := newTestStore(t)
	costs := cost.NewCalculator(config.PricingConfig{
		Perplexity: config.PerplexityPricing{PerQuery: 0.005},
	})

	stages := NewStages(&StubPerplexityClient{}, &StubAnthropicClient{}, "claude-sonnet-4-5-20250929", costs)
	fallback := NewFallback(&StubPerplexityClient{}, costs)
	r := fastRunner(stages, fallback, st, 3)

	profile, err := r.EnrichRow(context.Background(),
		model.Company{Name: "Acme Corp", URL: "https://acme.example.com"}, "ideal prospect doc")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", profile.ContactName)
	assert.Equal(t, "jane.doe@example.com", profile.ContactEmail)
	assert.Equal(t, "$12M", profile.Revenue)
	assert.Equal(t, "85", profile.EmployeeCount)
	assert.Equal(t, "2009", profile.FoundingYear)
	assert.Equal(t, []string{"Manufacturing", "Logistics"}, profile.TargetIndustries)
	assert.Equal(t, "85", profile.Ranking)
	assert.NotEmpty(t, profile.Reasoning)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	logs, err := st.ListStageLogs(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, logs, 5)
}
