package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/gmail"
)

var (
	outreachInput   string
	outreachMode    string
	outreachSend    bool
	outreachRankMin int
	outreachRankMax int
	outreachSelect  []string
	outreachOffline bool
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Schedule and dispatch outreach waves over enriched profiles",
	Long: `Reads an enriched profile CSV and, for each company, decides whether to
dispatch the next outreach wave. The ledger enforces idempotency, wave
ordering and the cooldown window; skipped companies stay eligible on the
next pass.

By default dispatches create Gmail drafts; pass --send to deliver
directly.

Examples:
  # First pass, drafts only
  prospect-cli outreach --input enriched.csv

  # Follow-ups for high-ranked prospects
  prospect-cli outreach --input enriched.csv --mode follow-up --rank-min 70`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if outreachMode != "initial" && outreachMode != "follow-up" {
			return eris.Errorf("outreach: invalid --mode %q (want initial or follow-up)", outreachMode)
		}

		rows, err := pipeline.ImportEnrichedCSV(outreachInput)
		if err != nil {
			return eris.Wrap(err, "outreach: read enriched profiles")
		}

		candidates := make([]outreach.Candidate, len(rows))
		for i, row := range rows {
			candidates[i] = outreach.Candidate{Company: row.Company.Name, Profile: row.Profile}
		}
		candidates = outreach.FilterCandidates(candidates, outreachRankMin, outreachRankMax, outreachSelect)
		if len(candidates) == 0 {
			fmt.Fprintln(os.Stderr, "No candidates after filtering.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var gen outreach.Generator
		var gw outreach.Gateway
		if outreachOffline {
			gen = outreach.NewGenerator(&pipeline.StubAnthropicClient{}, cfg.Anthropic.Model)
			gw = &outreach.StubGateway{}
		} else {
			if cfg.Anthropic.Key == "" {
				return eris.New("outreach: PROSPECT_ANTHROPIC_KEY not set (required: content generation); use --offline for stub mode")
			}
			gen = outreach.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)

			gc, err := gmail.NewClient(ctx, cfg.Gmail.CredentialsFile)
			if err != nil {
				return eris.Wrap(err, "outreach: init gmail")
			}
			gw = outreach.NewGmailGateway(gc, outreachSend)
		}

		sched := outreach.NewScheduler(st, gen, gw, outreach.Config{
			Sender:       outreach.Identity{Name: cfg.Sender.Name, Role: cfg.Sender.Role},
			Cooldown:     time.Duration(cfg.Outreach.CooldownHours) * time.Hour,
			FollowUpOnly: outreachMode == "follow-up",
			DispatchRPS:  cfg.Outreach.DispatchRPS,
		})

		outcomes := sched.Run(ctx, candidates)
		formatOutcomes(outcomes)
		return nil
	},
}

func init() {
	outreachCmd.Flags().StringVar(&outreachInput, "input", "", "path to enriched profiles CSV (required)")
	outreachCmd.Flags().StringVar(&outreachMode, "mode", "initial", "scheduling mode: initial or follow-up")
	outreachCmd.Flags().BoolVar(&outreachSend, "send", false, "send emails directly instead of creating drafts")
	outreachCmd.Flags().IntVar(&outreachRankMin, "rank-min", 0, "minimum ranking to include (0 = no lower bound)")
	outreachCmd.Flags().IntVar(&outreachRankMax, "rank-max", 0, "maximum ranking to include (0 = no upper bound)")
	outreachCmd.Flags().StringSliceVar(&outreachSelect, "select", nil, "only these contact addresses (comma separated)")
	outreachCmd.Flags().BoolVar(&outreachOffline, "offline", false, "use stub content generation and gateway")
	_ = outreachCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(outreachCmd)
}

func formatOutcomes(outcomes []model.WaveOutcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tEMAIL\tOUTCOME\tWAVE\tREASON")
	for _, o := range outcomes {
		wave := ""
		if o.Wave != model.WaveNone {
			wave = fmt.Sprintf("%d", o.Wave)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.Company, o.Email, strings.ToUpper(string(o.Kind)), wave, o.Reason)
	}
	_ = w.Flush()
}
