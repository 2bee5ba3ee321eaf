package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	profile    TEXT,
	attempts   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stage_logs (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	stage         TEXT NOT NULL,
	company       TEXT NOT NULL,
	attempt       INTEGER NOT NULL DEFAULT 0,
	raw_output    TEXT NOT NULL DEFAULT '',
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost          REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outreach_ledger (
	company       TEXT NOT NULL,
	email         TEXT NOT NULL,
	company_key   TEXT NOT NULL,
	email_key     TEXT NOT NULL,
	contact_name  TEXT NOT NULL DEFAULT '',
	last_subject  TEXT NOT NULL DEFAULT '',
	wave1_sent_at DATETIME,
	wave2_sent_at DATETIME,
	wave3_sent_at DATETIME,
	updated_at    DATETIME NOT NULL,
	PRIMARY KEY (company_key, email_key)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_stage_logs_run_id ON stage_logs(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_company_key ON outreach_ledger(company_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, company model.Company) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	companyJSON, err := json.Marshal(company)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal company")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, company, status, attempts, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id, string(companyJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Company:   company,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, profile model.Profile, attempts int) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, profile = ?, attempts = ?, updated_at = ? WHERE id = ?`,
		string(status), string(profileJSON), attempts, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, company, status, profile, attempts, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AppendStageLog(ctx context.Context, entry model.StageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_logs (id, run_id, stage, company, attempt, raw_output, input_tokens, output_tokens, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RunID, entry.Stage, entry.Company, entry.Attempt,
		entry.RawOutput, entry.Usage.InputTokens, entry.Usage.OutputTokens, entry.Cost, entry.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert stage log for run %s", entry.RunID)
}

func (s *SQLiteStore) ListStageLogs(ctx context.Context, runID string) ([]model.StageLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, company, attempt, raw_output, input_tokens, output_tokens, cost, created_at
		 FROM stage_logs WHERE run_id = ? ORDER BY created_at, id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stage logs")
	}
	defer rows.Close()

	var logs []model.StageLog
	for rows.Next() {
		var l model.StageLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Stage, &l.Company, &l.Attempt,
			&l.RawOutput, &l.Usage.InputTokens, &l.Usage.OutputTokens, &l.Cost, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list stage logs iterate")
}

func (s *SQLiteStore) LookupLedger(ctx context.Context, company, email string) (*model.LedgerRow, error) {
	ck, ek := ledgerKeys(company, email)
	row := s.db.QueryRowContext(ctx,
		`SELECT company, email, contact_name, last_subject, wave1_sent_at, wave2_sent_at, wave3_sent_at, updated_at
		 FROM outreach_ledger WHERE company_key = ? AND email_key = ?`,
		ck, ek,
	)
	lr, err := scanLedgerRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup ledger")
	}
	return lr, nil
}

func (s *SQLiteStore) RecordWave(ctx context.Context, rec WaveRecord) error {
	col, prev, err := waveColumns(rec.Wave)
	if err != nil {
		return err
	}

	ck, ek := ledgerKeys(rec.Company, rec.Email)
	now := time.Now().UTC()

	if rec.Wave == model.Wave1 {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO outreach_ledger (company, email, company_key, email_key, contact_name, last_subject, updated_at)
			 VALUES (?, ?, ?, ?, ?, '', ?)`,
			rec.Company, rec.Email, ck, ek, rec.ContactName, now,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert ledger row")
		}
	}

	// Guarded write: the timestamp lands only if the slot is still empty
	// and the previous wave (if any) was recorded.
	query := fmt.Sprintf(
		`UPDATE outreach_ledger
		 SET %s = ?, last_subject = ?, contact_name = COALESCE(NULLIF(?, ''), contact_name), updated_at = ?
		 WHERE company_key = ? AND email_key = ? AND %s IS NULL`,
		col, col,
	)
	if prev != "" {
		query += fmt.Sprintf(` AND %s IS NOT NULL`, prev)
	}

	res, err := s.db.ExecContext(ctx, query,
		rec.SentAt.UTC(), rec.Subject, rec.ContactName, now, ck, ek,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record wave %d", rec.Wave)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return nil
	}

	return classifyWaveConflict(ctx, s, rec)
}

func (s *SQLiteStore) ListLedger(ctx context.Context) ([]model.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, email, contact_name, last_subject, wave1_sent_at, wave2_sent_at, wave3_sent_at, updated_at
		 FROM outreach_ledger ORDER BY company_key, email_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ledger")
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		lr, err := scanLedgerRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ledger row")
		}
		out = append(out, *lr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ledger iterate")
}

func (s *SQLiteStore) LastWaveSentAt(ctx context.Context, company string) (*time.Time, error) {
	ck := strings.ToLower(strings.TrimSpace(company))
	rows, err := s.db.QueryContext(ctx,
		`SELECT wave1_sent_at, wave2_sent_at, wave3_sent_at FROM outreach_ledger WHERE company_key = ?`,
		ck,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last wave sent")
	}
	defer rows.Close()

	var last *time.Time
	for rows.Next() {
		var w1, w2, w3 sql.NullTime
		if err := rows.Scan(&w1, &w2, &w3); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan wave timestamps")
		}
		for _, nt := range []sql.NullTime{w1, w2, w3} {
			if nt.Valid && (last == nil || nt.Time.After(*last)) {
				t := nt.Time
				last = &t
			}
		}
	}
	return last, eris.Wrap(rows.Err(), "sqlite: last wave sent iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// ledgerKeys normalizes company and email for case-insensitive matching.
func ledgerKeys(company, email string) (string, string) {
	return strings.ToLower(strings.TrimSpace(company)), strings.ToLower(strings.TrimSpace(email))
}

// waveColumns maps a wave to its timestamp column and the column of the
// wave that must precede it.
func waveColumns(w model.Wave) (col, prev string, err error) {
	switch w {
	case model.Wave1:
		return "wave1_sent_at", "", nil
	case model.Wave2:
		return "wave2_sent_at", "wave1_sent_at", nil
	case model.Wave3:
		return "wave3_sent_at", "wave2_sent_at", nil
	default:
		return "", "", eris.Errorf("store: invalid wave %d", w)
	}
}

// classifyWaveConflict inspects the current row to explain why a guarded
// wave write affected no rows.
func classifyWaveConflict(ctx context.Context, s Store, rec WaveRecord) error {
	row, err := s.LookupLedger(ctx, rec.Company, rec.Email)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrLedgerRowMissing
	}
	if row.SentAt(rec.Wave) != nil {
		return ErrWaveAlreadySet
	}
	return ErrWaveOutOfOrder
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var companyJSON string
	var profileJSON sql.NullString

	err := row.Scan(&r.ID, &companyJSON, &r.Status, &profileJSON, &r.Attempts, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(companyJSON), &r.Company); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal company")
	}
	if profileJSON.Valid {
		r.Profile = &model.Profile{}
		if err := json.Unmarshal([]byte(profileJSON.String), r.Profile); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal profile")
		}
	}
	return &r, nil
}

func scanLedgerRow(row scannable) (*model.LedgerRow, error) {
	var lr model.LedgerRow
	var w1, w2, w3 sql.NullTime

	err := row.Scan(&lr.Company, &lr.Email, &lr.ContactName, &lr.LastSubject, &w1, &w2, &w3, &lr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if w1.Valid {
		lr.Wave1SentAt = &w1.Time
	}
	if w2.Valid {
		lr.Wave2SentAt = &w2.Time
	}
	if w3.Valid {
		lr.Wave3SentAt = &w3.Time
	}
	return &lr, nil
}
