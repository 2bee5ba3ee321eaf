package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Runner drives the ordered stage sequence for one input row at a time.
//
// The retry policy restarts the whole stage sequence, not just the stage
// that faulted: stages are stateless so re-execution is safe, and
// resuming mid-sequence would leave the shared context half-built.
type Runner struct {
	stages     []Stage
	fallback   Stage
	store      store.Store
	maxRetries int

	// backoffUnit scales the 2^attempt backoff between whole-sequence
	// retries. One second in production.
	backoffUnit time.Duration
}

// NewRunner creates a Runner. maxRetries is the total number of
// whole-sequence executions attempted per row.
func NewRunner(stages []Stage, fallback Stage, st store.Store, maxRetries int) *Runner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Runner{
		stages:      stages,
		fallback:    fallback,
		store:       st,
		maxRetries:  maxRetries,
		backoffUnit: time.Second,
	}
}

// EnrichRow runs the full stage sequence for one company and returns its
// canonical profile. Exhausted retries degrade to a default-valued
// profile rather than an error; only store failures are fatal.
func (r *Runner) EnrichRow(ctx context.Context, company model.Company, document string) (model.Profile, error) {
	run, err := r.store.CreateRun(ctx, company)
	if err != nil {
		return model.DefaultProfile(), err
	}

	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("company", company.Name),
	)

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		status := model.RunStatusRunning
		if attempt > 1 {
			status = model.RunStatusRetrying
		}
		if err := r.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
			return model.DefaultProfile(), err
		}

		pctx := NewContext(company, document)
		agg := NewAggregate()

		execErr := r.executeSequence(ctx, run, pctx, agg, attempt)

		if execErr == nil && agg.Empty() && r.fallback != nil {
			execErr = r.runFallback(ctx, run, pctx, agg, attempt)
		}

		if execErr == nil {
			profile := model.ProfileFromMap(agg.Flat())
			if err := r.store.CompleteRun(ctx, run.ID, model.RunStatusComplete, profile, attempt); err != nil {
				return profile, err
			}
			log.Info("enrichment complete",
				zap.Int("attempt", attempt),
				zap.Bool("empty", agg.Empty()),
			)
			return profile, nil
		}

		log.Warn("enrichment attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.maxRetries),
			zap.Error(execErr),
		)

		if attempt == r.maxRetries {
			break
		}
		if err := r.backoff(ctx, attempt); err != nil {
			break
		}
	}

	// Retries exhausted: a terminal "no data found" outcome, not a batch
	// failure.
	profile := model.DefaultProfile()
	if err := r.store.CompleteRun(ctx, run.ID, model.RunStatusFailed, profile, r.maxRetries); err != nil {
		return profile, err
	}
	log.Warn("enrichment exhausted retries, defaulting profile")
	return profile, nil
}

// executeSequence runs each stage in order, parsing and merging between
// stages so later prompts can reference earlier fields. Any stage fault
// aborts the sequence and surfaces to the retry loop.
func (r *Runner) executeSequence(ctx context.Context, run *model.Run, pctx *Context, agg *Aggregate, attempt int) error {
	for _, stage := range r.stages {
		out, err := stage.Execute(ctx, pctx)
		if err != nil {
			return err
		}

		r.audit(ctx, run, stage.Name(), out, attempt)

		// Unparseable output means the stage declined to answer; it is
		// not a fault.
		if parsed, ok := ExtractJSON(out.Text); ok {
			agg.Merge(pctx, stage.OutputKey(), parsed)
		}
	}
	return nil
}

func (r *Runner) runFallback(ctx context.Context, run *model.Run, pctx *Context, agg *Aggregate, attempt int) error {
	if err := r.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFallback); err != nil {
		return err
	}

	out, err := r.fallback.Execute(ctx, pctx)
	if err != nil {
		return err
	}

	r.audit(ctx, run, r.fallback.Name(), out, attempt)

	if parsed, ok := ExtractJSON(out.Text); ok {
		agg.Merge(pctx, r.fallback.OutputKey(), parsed)
	}
	return nil
}

// audit emits the stage's raw output to the store and the log. The
// record is required for auditability; a store failure here is logged
// but does not fail the run.
func (r *Runner) audit(ctx context.Context, run *model.Run, stage string, out *StageOutput, attempt int) {
	entry := model.StageLog{
		RunID:     run.ID,
		Stage:     stage,
		Company:   run.Company.Name,
		Attempt:   attempt,
		RawOutput: out.Text,
		Usage:     out.Usage,
		Cost:      out.Cost,
	}
	if err := r.store.AppendStageLog(ctx, entry); err != nil {
		zap.L().Error("append stage log", zap.String("stage", stage), zap.Error(err))
	}

	zap.L().Info("stage output",
		zap.String("run_id", run.ID),
		zap.String("stage", stage),
		zap.String("company", run.Company.Name),
		zap.Int("attempt", attempt),
		zap.Int("input_tokens", out.Usage.InputTokens),
		zap.Int("output_tokens", out.Usage.OutputTokens),
		zap.Float64("cost_usd", out.Cost),
		zap.Int("output_bytes", len(out.Text)),
	)
}

// backoff sleeps 2^attempt units, or returns early on cancellation.
func (r *Runner) backoff(ctx context.Context, attempt int) error {
	delay := (1 << attempt) * r.backoffUnit
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
