package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	profile    JSONB,
	attempts   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stage_logs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	stage         TEXT NOT NULL,
	company       TEXT NOT NULL,
	attempt       INTEGER NOT NULL DEFAULT 0,
	raw_output    TEXT NOT NULL DEFAULT '',
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost          DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach_ledger (
	company       TEXT NOT NULL,
	email         TEXT NOT NULL,
	company_key   TEXT NOT NULL,
	email_key     TEXT NOT NULL,
	contact_name  TEXT NOT NULL DEFAULT '',
	last_subject  TEXT NOT NULL DEFAULT '',
	wave1_sent_at TIMESTAMPTZ,
	wave2_sent_at TIMESTAMPTZ,
	wave3_sent_at TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (company_key, email_key)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_stage_logs_run_id ON stage_logs(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_company_key ON outreach_ledger(company_key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) CreateRun(ctx context.Context, company model.Company) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	companyJSON, err := json.Marshal(company)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal company")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, company, status, attempts, created_at, updated_at) VALUES ($1, $2, $3, 0, $4, $5)`,
		id, companyJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Company:   company,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, profile model.Profile, attempts int) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, profile = $2, attempts = $3, updated_at = $4 WHERE id = $5`,
		string(status), profileJSON, attempts, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, company, status, profile, attempts, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var companyJSON []byte
		var profileJSON *[]byte

		if err := rows.Scan(&r.ID, &companyJSON, &r.Status, &profileJSON, &r.Attempts, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(companyJSON, &r.Company); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal company")
		}
		if profileJSON != nil {
			r.Profile = &model.Profile{}
			if err := json.Unmarshal(*profileJSON, r.Profile); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal profile")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AppendStageLog(ctx context.Context, entry model.StageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stage_logs (id, run_id, stage, company, attempt, raw_output, input_tokens, output_tokens, cost, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.RunID, entry.Stage, entry.Company, entry.Attempt,
		entry.RawOutput, entry.Usage.InputTokens, entry.Usage.OutputTokens, entry.Cost, entry.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert stage log for run %s", entry.RunID)
}

func (s *PostgresStore) ListStageLogs(ctx context.Context, runID string) ([]model.StageLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, stage, company, attempt, raw_output, input_tokens, output_tokens, cost, created_at
		 FROM stage_logs WHERE run_id = $1 ORDER BY created_at, id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stage logs")
	}
	defer rows.Close()

	var logs []model.StageLog
	for rows.Next() {
		var l model.StageLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Stage, &l.Company, &l.Attempt,
			&l.RawOutput, &l.Usage.InputTokens, &l.Usage.OutputTokens, &l.Cost, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list stage logs iterate")
}

func (s *PostgresStore) LookupLedger(ctx context.Context, company, email string) (*model.LedgerRow, error) {
	ck, ek := ledgerKeys(company, email)
	row := s.pool.QueryRow(ctx,
		`SELECT company, email, contact_name, last_subject, wave1_sent_at, wave2_sent_at, wave3_sent_at, updated_at
		 FROM outreach_ledger WHERE company_key = $1 AND email_key = $2`,
		ck, ek,
	)

	var lr model.LedgerRow
	err := row.Scan(&lr.Company, &lr.Email, &lr.ContactName, &lr.LastSubject,
		&lr.Wave1SentAt, &lr.Wave2SentAt, &lr.Wave3SentAt, &lr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: lookup ledger")
	}
	return &lr, nil
}

func (s *PostgresStore) RecordWave(ctx context.Context, rec WaveRecord) error {
	col, prev, err := waveColumns(rec.Wave)
	if err != nil {
		return err
	}

	ck, ek := ledgerKeys(rec.Company, rec.Email)
	now := time.Now().UTC()

	if rec.Wave == model.Wave1 {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO outreach_ledger (company, email, company_key, email_key, contact_name, last_subject, updated_at)
			 VALUES ($1, $2, $3, $4, $5, '', $6)
			 ON CONFLICT (company_key, email_key) DO NOTHING`,
			rec.Company, rec.Email, ck, ek, rec.ContactName, now,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert ledger row")
		}
	}

	query := fmt.Sprintf(
		`UPDATE outreach_ledger
		 SET %s = $1, last_subject = $2, contact_name = COALESCE(NULLIF($3, ''), contact_name), updated_at = $4
		 WHERE company_key = $5 AND email_key = $6 AND %s IS NULL`,
		col, col,
	)
	if prev != "" {
		query += fmt.Sprintf(` AND %s IS NOT NULL`, prev)
	}

	tag, err := s.pool.Exec(ctx, query,
		rec.SentAt.UTC(), rec.Subject, rec.ContactName, now, ck, ek,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record wave %d", rec.Wave)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	return classifyWaveConflict(ctx, s, rec)
}

func (s *PostgresStore) ListLedger(ctx context.Context) ([]model.LedgerRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, email, contact_name, last_subject, wave1_sent_at, wave2_sent_at, wave3_sent_at, updated_at
		 FROM outreach_ledger ORDER BY company_key, email_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ledger")
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		var lr model.LedgerRow
		if err := rows.Scan(&lr.Company, &lr.Email, &lr.ContactName, &lr.LastSubject,
			&lr.Wave1SentAt, &lr.Wave2SentAt, &lr.Wave3SentAt, &lr.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ledger row")
		}
		out = append(out, lr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ledger iterate")
}

func (s *PostgresStore) LastWaveSentAt(ctx context.Context, company string) (*time.Time, error) {
	ck := strings.ToLower(strings.TrimSpace(company))

	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(GREATEST(wave1_sent_at, wave2_sent_at, wave3_sent_at))
		 FROM outreach_ledger WHERE company_key = $1`,
		ck,
	).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: last wave sent")
	}
	return last, nil
}
