package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func anomaliesCmd(v *viper.Viper) *cobra.Command {
	var (
		file      string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List transactions far above the median of their category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := readRowsFile(file)
			if err != nil {
				return err
			}
			txs := make([]domain.Transaction, len(rows))
			for i, r := range rows {
				if txs[i], err = r.transaction(); err != nil {
					return err
				}
			}

			cfg := loadConfig(v)
			logger := observability.NewLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			analytics := service.NewAnalytics(cfg.AnomalyThreshold, observability.NewMetrics(), logger)
			resp := analytics.Anomalies(cmd.Context(), domain.AnomalyRequest{
				Transactions: txs,
				Threshold:    threshold,
			})

			if len(resp.Anomalies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no anomalies found")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tAMOUNT\tSEVERITY\tSCORE\tDESCRIPTION")
			for _, a := range resp.Anomalies {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%.2f\t%s\n",
					a.TransactionID, a.Category, a.Amount, a.Severity, a.Score, a.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "transaction CSV to read")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "robust z-score cutoff (default from ANOMALY_THRESHOLD)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
