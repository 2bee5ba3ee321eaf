package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresRecordWave1(t *testing.T) {
	st, mock := newMockPostgres(t)
	sent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO outreach_ledger`).
		WithArgs("Acme Corp", "jane@acme.example.com", "acme corp", "jane@acme.example.com", "Jane Doe", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE outreach_ledger`).
		WithArgs(sent, "Quick question", "Jane Doe", pgxmock.AnyArg(), "acme corp", "jane@acme.example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := st.RecordWave(context.Background(), WaveRecord{
		Company:     "Acme Corp",
		Email:       "jane@acme.example.com",
		ContactName: "Jane Doe",
		Subject:     "Quick question",
		Wave:        model.Wave1,
		SentAt:      sent,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordWave2WithoutRow(t *testing.T) {
	st, mock := newMockPostgres(t)
	sent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE outreach_ledger`).
		WithArgs(sent, "Following up", "", pgxmock.AnyArg(), "acme", "jane@acme.example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	// The guarded update missed, so the conflict is classified by lookup.
	mock.ExpectQuery(`SELECT company, email, contact_name`).
		WithArgs("acme", "jane@acme.example.com").
		WillReturnError(pgx.ErrNoRows)

	err := st.RecordWave(context.Background(), WaveRecord{
		Company: "Acme",
		Email:   "jane@acme.example.com",
		Subject: "Following up",
		Wave:    model.Wave2,
		SentAt:  sent,
	})
	require.ErrorIs(t, err, ErrLedgerRowMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordWaveAlreadySet(t *testing.T) {
	st, mock := newMockPostgres(t)
	sent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	earlier := sent.Add(-time.Hour)

	mock.ExpectExec(`INSERT INTO outreach_ledger`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`UPDATE outreach_ledger`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT company, email, contact_name`).
		WithArgs("acme", "jane@acme.example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"company", "email", "contact_name", "last_subject",
			"wave1_sent_at", "wave2_sent_at", "wave3_sent_at", "updated_at",
		}).AddRow("Acme", "jane@acme.example.com", "Jane Doe", "Quick question",
			&earlier, (*time.Time)(nil), (*time.Time)(nil), earlier))

	err := st.RecordWave(context.Background(), WaveRecord{
		Company: "Acme",
		Email:   "jane@acme.example.com",
		Wave:    model.Wave1,
		SentAt:  sent,
	})
	require.ErrorIs(t, err, ErrWaveAlreadySet)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupLedgerMissing(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT company, email, contact_name`).
		WithArgs("acme", "jane@acme.example.com").
		WillReturnError(pgx.ErrNoRows)

	row, err := st.LookupLedger(context.Background(), "Acme", "jane@acme.example.com")
	require.NoError(t, err)
	assert.Nil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastWaveSentAt(t *testing.T) {
	st, mock := newMockPostgres(t)
	sent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MAX\(GREATEST\(`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&sent))

	last, err := st.LastWaveSentAt(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(sent))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissingRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "no-such-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateRunStatus(context.Background(), "no-such-run", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
