package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/pipeline"
)

var ledgerOutput string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or export the outreach ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.ListLedger(ctx)
		if err != nil {
			return eris.Wrap(err, "ledger")
		}

		if ledgerOutput != "" {
			if err := pipeline.ExportLedgerCSV(rows, ledgerOutput); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Ledger written to %s (%d rows).\n", ledgerOutput, len(rows))
			return nil
		}

		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "Ledger is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "COMPANY\tEMAIL\tCONTACT\tWAVE1\tWAVE2\tWAVE3")
		for _, r := range rows {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Company, r.Email, r.ContactName,
				formatWaveTime(r.Wave1SentAt),
				formatWaveTime(r.Wave2SentAt),
				formatWaveTime(r.Wave3SentAt),
			)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerOutput, "output", "", "write ledger CSV to this path instead of printing")
	rootCmd.AddCommand(ledgerCmd)
}

func formatWaveTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
