package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerRowNextWave(t *testing.T) {
	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(4 * 24 * time.Hour)
	t3 := t2.Add(4 * 24 * time.Hour)

	row := &LedgerRow{}
	assert.Equal(t, Wave1, row.NextWave())

	row.Wave1SentAt = &t1
	assert.Equal(t, Wave2, row.NextWave())

	row.Wave2SentAt = &t2
	assert.Equal(t, Wave3, row.NextWave())

	row.Wave3SentAt = &t3
	assert.Equal(t, WaveNone, row.NextWave())
}

func TestLedgerRowSentAt(t *testing.T) {
	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	row := &LedgerRow{Wave1SentAt: &t1}

	assert.Equal(t, &t1, row.SentAt(Wave1))
	assert.Nil(t, row.SentAt(Wave2))
	assert.Nil(t, row.SentAt(WaveNone))
}

func TestLedgerRowLastSentAt(t *testing.T) {
	row := &LedgerRow{}
	assert.Nil(t, row.LastSentAt())

	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(4 * 24 * time.Hour)
	row.Wave1SentAt = &t1
	row.Wave2SentAt = &t2

	assert.Equal(t, &t2, row.LastSentAt())
}
