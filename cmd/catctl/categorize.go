package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/boddenberg/categorizer-go/internal/app"
	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func categorizeCmd(v *viper.Viper) *cobra.Command {
	var (
		file        string
		out         string
		useAI       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize every row of a transaction CSV",
		Long: `Reads a CSV with description, merchant, amount, currency, date and type
columns and runs each row through cache, learned memory, rules, the optional
LLM classifier and the heuristic fallback.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := readRowsFile(file)
			if err != nil {
				return err
			}
			inputs := make([]domain.CategorizeInput, len(rows))
			for i, r := range rows {
				if inputs[i], err = r.categorizeInput(); err != nil {
					return err
				}
			}

			cfg := loadConfig(v)
			logger := observability.NewLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			a, err := app.New(cmd.Context(), cfg, observability.NewMetrics(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := domain.BatchOptions{MaxConcurrency: concurrency}
			if cmd.Flags().Changed("ai") {
				opts.UseAI = &useAI
			}
			results := a.Batch.CategorizeBatch(cmd.Context(), inputs, opts)

			for i, res := range results {
				rows[i].Category = res.Category
				rows[i].Confidence = res.Confidence
				rows[i].DedupHash = res.DedupHash
			}

			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				return writeRows(f, rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DESCRIPTION\tAMOUNT\tCATEGORY\tCONFIDENCE\tREASON")
			for i, res := range results {
				reason := ""
				if len(res.Reasons) > 0 {
					reason = res.Reasons[0]
				}
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t%.2f\t%s\n",
					rows[i].Description, rows[i].Amount, res.Category, res.Confidence, reason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "transaction CSV to read")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the categorized CSV here instead of a table")
	cmd.Flags().BoolVar(&useAI, "ai", false, "consult the LLM for every row, not only weak rule matches")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "rows categorized in parallel (default from BATCH_MAX_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
