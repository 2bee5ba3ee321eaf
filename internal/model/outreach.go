package model

import "time"

// Wave identifies an outreach wave. Waves are strictly ordered: wave 2
// is never sent before wave 1, wave 3 never before wave 2.
type Wave int

const (
	WaveNone Wave = 0
	Wave1    Wave = 1
	Wave2    Wave = 2
	Wave3    Wave = 3
)

// MaxWaves is the number of outreach waves per company.
const MaxWaves = 3

// LedgerRow is the durable outreach record for one company + address pair.
// Wave timestamps are write-once: a set timestamp is never overwritten.
type LedgerRow struct {
	Company     string     `json:"company" csv:"company"`
	Email       string     `json:"email" csv:"email"`
	ContactName string     `json:"contact_name" csv:"contact_name"`
	LastSubject string     `json:"last_subject" csv:"last_subject"`
	Wave1SentAt *time.Time `json:"wave1_sent_at" csv:"wave1_sent_at"`
	Wave2SentAt *time.Time `json:"wave2_sent_at" csv:"wave2_sent_at"`
	Wave3SentAt *time.Time `json:"wave3_sent_at" csv:"wave3_sent_at"`
	UpdatedAt   time.Time  `json:"updated_at" csv:"updated_at"`
}

// NextWave returns the next unsent wave for this row, or WaveNone when
// all waves are exhausted.
func (r *LedgerRow) NextWave() Wave {
	switch {
	case r.Wave1SentAt == nil:
		return Wave1
	case r.Wave2SentAt == nil:
		return Wave2
	case r.Wave3SentAt == nil:
		return Wave3
	default:
		return WaveNone
	}
}

// SentAt returns the timestamp recorded for a wave, or nil.
func (r *LedgerRow) SentAt(w Wave) *time.Time {
	switch w {
	case Wave1:
		return r.Wave1SentAt
	case Wave2:
		return r.Wave2SentAt
	case Wave3:
		return r.Wave3SentAt
	default:
		return nil
	}
}

// LastSentAt returns the most recent wave timestamp on this row, or nil
// when nothing has been sent yet.
func (r *LedgerRow) LastSentAt() *time.Time {
	var last *time.Time
	for _, t := range []*time.Time{r.Wave1SentAt, r.Wave2SentAt, r.Wave3SentAt} {
		if t != nil && (last == nil || t.After(*last)) {
			last = t
		}
	}
	return last
}

// OutcomeKind classifies what happened to a company during a scheduling pass.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Skip reasons reported on WaveOutcome. Skipped companies stay eligible
// on the next scheduling pass.
const (
	SkipNoValidAddress = "no valid address"
	SkipNoPreviousWave = "no previous wave"
	SkipCooldownActive = "cooldown active"
	SkipWavesExhausted = "all waves exhausted"
	SkipContentFailed  = "content generation failed"
	SkipDeliveryFailed = "delivery failed"
	SkipLedgerConflict = "ledger conflict"
)

// WaveOutcome is the per-company result of one scheduling pass.
type WaveOutcome struct {
	Company string      `json:"company"`
	Email   string      `json:"email"`
	Kind    OutcomeKind `json:"kind"`
	Wave    Wave        `json:"wave,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}
