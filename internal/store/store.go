package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Sentinel errors for ledger wave writes. Callers check these with
// errors.Is to map storage conflicts to scheduling outcomes.
var (
	// ErrWaveAlreadySet means the wave timestamp was already recorded;
	// the existing value is never overwritten.
	ErrWaveAlreadySet = eris.New("store: wave already recorded")

	// ErrWaveOutOfOrder means the preceding wave has not been sent yet.
	ErrWaveOutOfOrder = eris.New("store: previous wave not recorded")

	// ErrLedgerRowMissing means no ledger row exists for the company and
	// address. Only wave 1 may create a row.
	ErrLedgerRowMissing = eris.New("store: ledger row missing")
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// WaveRecord captures one successful dispatch for the ledger.
type WaveRecord struct {
	Company     string
	Email       string
	ContactName string
	Subject     string
	Wave        model.Wave
	SentAt      time.Time
}

// Store defines the persistence interface for enrichment runs, stage
// audit records, and the outreach ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, company model.Company) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, profile model.Profile, attempts int) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stage audit
	AppendStageLog(ctx context.Context, entry model.StageLog) error
	ListStageLogs(ctx context.Context, runID string) ([]model.StageLog, error)

	// Outreach ledger. Lookups are case-insensitive on company and email.
	// LookupLedger returns (nil, nil) when no row exists.
	LookupLedger(ctx context.Context, company, email string) (*model.LedgerRow, error)
	// RecordWave writes a wave timestamp with compare-and-set semantics:
	// concurrent writers lose cleanly with ErrWaveAlreadySet. Wave 1
	// creates the row; later waves require it to exist.
	RecordWave(ctx context.Context, rec WaveRecord) error
	ListLedger(ctx context.Context) ([]model.LedgerRow, error)
	// LastWaveSentAt returns the most recent wave timestamp across all
	// ledger rows for a company, or nil when nothing has been sent.
	LastWaveSentAt(ctx context.Context, company string) (*time.Time, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
