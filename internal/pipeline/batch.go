package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/model"
)

// EnrichedRow pairs an input company with its enrichment output.
type EnrichedRow struct {
	Company model.Company
	Profile model.Profile
}

// RunBatch enriches every company and returns rows in input order. A
// row's failure degrades to a default profile; the batch never aborts
// because of one row. Cancellation is checked at row boundaries only, so
// an in-flight row always completes.
func (r *Runner) RunBatch(ctx context.Context, companies []model.Company, document string, concurrency int) []EnrichedRow {
	rows := make([]EnrichedRow, len(companies))
	for i, c := range companies {
		rows[i] = EnrichedRow{Company: c, Profile: model.DefaultProfile()}
	}

	if concurrency <= 1 {
		for i, company := range companies {
			if ctx.Err() != nil {
				zap.L().Warn("batch stopped",
					zap.Int("processed", i),
					zap.Int("total", len(companies)),
				)
				break
			}
			rows[i].Profile = r.enrichOne(ctx, company, document, i, len(companies))
		}
		return rows
	}

	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	for i, company := range companies {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rows[i].Profile = r.enrichOne(ctx, company, document, i, len(companies))
			return nil
		})
	}
	_ = g.Wait()

	return rows
}

func (r *Runner) enrichOne(ctx context.Context, company model.Company, document string, idx, total int) model.Profile {
	zap.L().Info("enriching company",
		zap.Int("row", idx+1),
		zap.Int("total", total),
		zap.String("name", company.Name),
		zap.String("url", company.URL),
	)

	profile, err := r.EnrichRow(ctx, company, document)
	if err != nil {
		zap.L().Error("company failed, keeping defaults",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return model.DefaultProfile()
	}
	return profile
}
