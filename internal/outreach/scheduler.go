package outreach

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Candidate is one enriched organization eligible for scheduling.
type Candidate struct {
	Company string
	Profile model.Profile
}

// Scheduler decides, per organization, whether to dispatch the next
// outreach wave. The ledger is the source of truth for idempotency and
// cooldown; the scheduler itself keeps no state between passes.
type Scheduler struct {
	store        store.Store
	gen          Generator
	gateway      Gateway
	sender       Identity
	cooldown     time.Duration
	followUpOnly bool
	limiter      *rate.Limiter

	// now is swappable for tests.
	now func() time.Time
}

// Config bundles scheduler construction parameters.
type Config struct {
	Sender       Identity
	Cooldown     time.Duration
	FollowUpOnly bool
	// DispatchRPS throttles dispatches across a pass. Zero disables
	// pacing.
	DispatchRPS float64
}

// NewScheduler creates a Scheduler.
func NewScheduler(st store.Store, gen Generator, gw Gateway, cfg Config) *Scheduler {
	var limiter *rate.Limiter
	if cfg.DispatchRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRPS), 1)
	}
	return &Scheduler{
		store:        st,
		gen:          gen,
		gateway:      gw,
		sender:       cfg.Sender,
		cooldown:     cfg.Cooldown,
		followUpOnly: cfg.FollowUpOnly,
		limiter:      limiter,
		now:          time.Now,
	}
}

// PlanAndDispatch runs the wave decision algorithm for one organization
// and commits the outcome to the ledger on success.
func (s *Scheduler) PlanAndDispatch(ctx context.Context, c Candidate) model.WaveOutcome {
	email := c.Profile.ContactEmail
	outcome := model.WaveOutcome{Company: c.Company, Email: email}

	if !ValidAddress(email) {
		return skipped(outcome, model.SkipNoValidAddress)
	}

	row, err := s.store.LookupLedger(ctx, c.Company, email)
	if err != nil {
		outcome.Kind = model.OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	var wave model.Wave
	var prevSubject string
	if row == nil {
		// Fresh organization: wave-1 candidate only.
		if s.followUpOnly {
			return skipped(outcome, model.SkipNoPreviousWave)
		}
		wave = model.Wave1
	} else {
		within, err := s.withinCooldown(ctx, c.Company)
		if err != nil {
			outcome.Kind = model.OutcomeFailed
			outcome.Reason = err.Error()
			return outcome
		}
		if within {
			return skipped(outcome, model.SkipCooldownActive)
		}
		wave = row.NextWave()
		if wave == model.WaveNone {
			return skipped(outcome, model.SkipWavesExhausted)
		}
		prevSubject = row.LastSubject
	}
	outcome.Wave = wave

	content, err := s.generate(ctx, c, wave, prevSubject)
	if err != nil {
		zap.L().Warn("content generation failed",
			zap.String("company", c.Company),
			zap.Int("wave", int(wave)),
			zap.Error(err),
		)
		return skipped(outcome, model.SkipContentFailed)
	}

	res, err := s.gateway.Dispatch(ctx, email, content.Subject, content.Body)
	if err != nil || !res.Success {
		// No ledger write: the next pass retries the same wave.
		zap.L().Warn("dispatch failed",
			zap.String("company", c.Company),
			zap.Int("wave", int(wave)),
			zap.String("detail", res.Detail),
			zap.Error(err),
		)
		return skipped(outcome, model.SkipDeliveryFailed)
	}

	err = s.store.RecordWave(ctx, store.WaveRecord{
		Company:     c.Company,
		Email:       email,
		ContactName: c.Profile.ContactName,
		Subject:     content.Subject,
		Wave:        wave,
		SentAt:      s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrWaveAlreadySet) ||
			errors.Is(err, store.ErrWaveOutOfOrder) ||
			errors.Is(err, store.ErrLedgerRowMissing) {
			// A concurrent pass won the compare-and-set; eligible again
			// next pass.
			return skipped(outcome, model.SkipLedgerConflict)
		}
		outcome.Kind = model.OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Kind = model.OutcomeSent
	return outcome
}

// Run schedules every candidate in order, pacing dispatches and checking
// cancellation at row boundaries.
func (s *Scheduler) Run(ctx context.Context, candidates []Candidate) []model.WaveOutcome {
	outcomes := make([]model.WaveOutcome, 0, len(candidates))

	var sent, skippedCount, failed int
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}

		o := s.PlanAndDispatch(ctx, c)
		outcomes = append(outcomes, o)

		switch o.Kind {
		case model.OutcomeSent:
			sent++
			zap.L().Info("wave dispatched",
				zap.String("company", o.Company),
				zap.String("email", o.Email),
				zap.Int("wave", int(o.Wave)),
			)
		case model.OutcomeSkipped:
			skippedCount++
			zap.L().Info("company skipped",
				zap.String("company", o.Company),
				zap.String("reason", o.Reason),
			)
		case model.OutcomeFailed:
			failed++
			zap.L().Error("scheduling failed",
				zap.String("company", o.Company),
				zap.String("reason", o.Reason),
			)
		}
	}

	zap.L().Info("outreach pass complete",
		zap.Int("total", len(candidates)),
		zap.Int("sent", sent),
		zap.Int("skipped", skippedCount),
		zap.Int("failed", failed),
	)
	return outcomes
}

// withinCooldown checks the most recent wave timestamp for the company
// against the cooldown window.
func (s *Scheduler) withinCooldown(ctx context.Context, company string) (bool, error) {
	last, err := s.store.LastWaveSentAt(ctx, company)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return s.now().Sub(*last) < s.cooldown, nil
}

func (s *Scheduler) generate(ctx context.Context, c Candidate, wave model.Wave, prevSubject string) (*WaveContent, error) {
	if wave == model.Wave1 {
		return s.gen.Initial(ctx, c.Company, c.Profile, s.sender)
	}
	return s.gen.FollowUp(ctx, c.Company, c.Profile, s.sender, prevSubject, wave)
}

func skipped(o model.WaveOutcome, reason string) model.WaveOutcome {
	o.Kind = model.OutcomeSkipped
	o.Reason = reason
	return o
}
