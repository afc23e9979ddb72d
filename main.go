package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"deals-dashboard/config"
	"deals-dashboard/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	defer logger.Sync()

	var filters filterFlags

	rootCmd := &cobra.Command{
		Use:           "deals-dashboard",
		Short:         "County deal summaries and feasibility checks over the deals sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	filters.register(rootCmd)

	rootCmd.AddCommand(serveCmd(cfg, logger))
	rootCmd.AddCommand(summaryCmd(cfg, logger, &filters))
	rootCmd.AddCommand(feasibilityCmd(cfg, logger, &filters))
	rootCmd.AddCommand(exportCmd(cfg, logger, &filters))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// filterFlags are shared by every command that works on a filtered view.
type filterFlags struct {
	year   string
	status string
	buyer  string
	dispo  string
	acq    string
	market string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.year, "year", "", `year to keep: a year, "all" or "last-12-months"`)
	pf.StringVar(&f.status, "status", "", `status mode: "all", "sold", "cut" or "both"`)
	pf.StringVar(&f.buyer, "buyer", "", "only deals for this buyer")
	pf.StringVar(&f.dispo, "dispo-rep", "", "only deals for this dispo rep")
	pf.StringVar(&f.acq, "acquisition-rep", "", "only deals for this acquisition rep")
	pf.StringVar(&f.market, "market", "", "only deals in this market")
}

func serveCmd(cfg *config.Config, logger *utils.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg, logger, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", cfg.ListenAddr, "listen address")
	return cmd
}

func summaryCmd(cfg *config.Config, logger *utils.Logger, filters *filterFlags) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the county summary report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd.Context(), cfg, logger, filters, top)
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 15, "number of counties to list")
	return cmd
}

func feasibilityCmd(cfg *config.Config, logger *utils.Logger, filters *filterFlags) *cobra.Command {
	var (
		county string
		price  float64
	)

	cmd := &cobra.Command{
		Use:   "feasibility",
		Short: "Check a proposed contract price against a county's history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeasibility(cmd.Context(), cfg, logger, filters, county, price)
		},
	}

	cmd.Flags().StringVar(&county, "county", "", "county name")
	cmd.Flags().Float64Var(&price, "price", 0, "proposed contract price")
	_ = cmd.MarkFlagRequired("county")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func exportCmd(cfg *config.Config, logger *utils.Logger, filters *filterFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the county summary CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), cfg, logger, filters, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", cfg.SummaryCSVPath, "output CSV path")
	return cmd
}
