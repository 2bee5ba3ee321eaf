package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/notion"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

var (
	enrichInput       string
	enrichOutput      string
	enrichLimit       int
	enrichConcurrency int
	enrichOffline     bool
	enrichNotionDB    string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the enrichment pipeline over an input file",
	Long: `Reads a CSV or XLSX of companies ("Company Name", "Website" columns),
runs each row through the research stage sequence, and writes the
aggregated canonical profiles to a CSV.

Examples:
  # Offline smoke run, no API keys needed
  prospect-cli enrich --input companies.csv --offline --limit 1

  # Real run, capped concurrency, push to Notion
  prospect-cli enrich --input companies.csv --concurrency 3 --notion-db <id>`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		companies, err := pipeline.ParseCompanies(enrichInput)
		if err != nil {
			return eris.Wrap(err, "enrich: parse input")
		}
		zap.L().Info("parsed input", zap.Int("companies", len(companies)))

		if enrichLimit > 0 && enrichLimit < len(companies) {
			companies = companies[:enrichLimit]
		}

		if !enrichOffline {
			if err := validateEnrichKeys(); err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var pc perplexity.Client
		var ac anthropic.Client
		if enrichOffline {
			pc = &pipeline.StubPerplexityClient{}
			ac = &pipeline.StubAnthropicClient{}
		} else {
			pc = perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model),
			)
			ac = anthropic.NewClient(cfg.Anthropic.Key)
		}

		costs := cost.NewCalculator(cfg.Pricing)
		stages := pipeline.NewStages(pc, ac, cfg.Anthropic.Model, costs)
		fallback := pipeline.NewFallback(pc, costs)
		runner := pipeline.NewRunner(stages, fallback, st, cfg.Pipeline.MaxRetries)

		document, err := loadDocument()
		if err != nil {
			return err
		}

		concurrency := enrichConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		rows := runner.RunBatch(ctx, companies, document, concurrency)

		outPath := enrichOutput
		if outPath == "" {
			outPath = "enriched.csv"
		}
		if err := pipeline.ExportEnrichedCSV(rows, outPath); err != nil {
			return err
		}
		zap.L().Info("profiles written", zap.String("path", outPath))

		if enrichNotionDB != "" {
			nc := notion.NewClient(cfg.Notion.Token)
			if err := pipeline.ExportNotion(ctx, nc, enrichNotionDB, rows); err != nil {
				return eris.Wrap(err, "enrich: notion export")
			}
		}

		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "path to companies CSV or XLSX (required)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output CSV path (default: enriched.csv)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max companies to process (0 = all)")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "companies processed in parallel (0 = config default)")
	enrichCmd.Flags().BoolVar(&enrichOffline, "offline", false, "use stub clients (no API keys needed)")
	enrichCmd.Flags().StringVar(&enrichNotionDB, "notion-db", "", "push enriched profiles to this Notion database")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

// loadDocument reads the static reference document stages compare
// prospects against. Missing config means an empty document, not an
// error.
func loadDocument() (string, error) {
	if cfg.Pipeline.DocumentPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(cfg.Pipeline.DocumentPath)
	if err != nil {
		return "", eris.Wrap(err, "enrich: read reference document")
	}
	return string(data), nil
}

func validateEnrichKeys() error {
	var missing []string
	if cfg.Perplexity.Key == "" {
		missing = append(missing, "PROSPECT_PERPLEXITY_KEY (required: research stages)")
	}
	if cfg.Anthropic.Key == "" {
		missing = append(missing, "PROSPECT_ANTHROPIC_KEY (required: ranking)")
	}
	if len(missing) > 0 {
		return eris.Errorf("enrich: missing required API keys:\n  %s\n\nSet these env vars or use --offline for stub mode", strings.Join(missing, "\n  "))
	}
	return nil
}
