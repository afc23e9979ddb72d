package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"deals-dashboard/config"
	"deals-dashboard/feed"
	"deals-dashboard/models"
	"deals-dashboard/server"
	"deals-dashboard/services"
	"deals-dashboard/storage"
	"deals-dashboard/utils"
)

// buildSources picks the deals and tiers sources named by DEALS_SOURCE. The
// returned cleanup closes any database handles.
func buildSources(cfg *config.Config, logger *utils.Logger) (deals, tiers storage.TableSource, cleanup func(), err error) {
	cleanup = func() {}

	switch cfg.DealsSource {
	case config.SourceHTTP:
		opts := feed.Options{
			Timeout:    time.Duration(cfg.HTTPTimeoutSec) * time.Second,
			MaxRetries: cfg.MaxRetries,
		}
		deals = feed.New("deals", cfg.DealsSheetURL, opts, logger)
		if cfg.TiersSheetURL != "" {
			tiers = feed.New("mao tiers", cfg.TiersSheetURL, opts, logger)
		}

	case config.SourceCSV:
		deals = storage.NewCSVSource(cfg.DealsCSVPath)
		if cfg.TiersCSVPath != "" {
			tiers = storage.NewCSVSource(cfg.TiersCSVPath)
		}

	case config.SourcePostgres, config.SourceSQLite:
		open := func(table string) (*storage.SQLSource, error) {
			if cfg.DealsSource == config.SourcePostgres {
				return storage.NewPostgresSource(cfg.DSN(), table)
			}
			return storage.NewSQLiteSource(cfg.SQLitePath, table)
		}
		d, err := open(cfg.DealsTable)
		if err != nil {
			return nil, nil, cleanup, err
		}
		t, err := open(cfg.TiersTable)
		if err != nil {
			logger.Warn("[storage] Tiers table unavailable, continuing without tiers: %v", err)
			cleanup = func() { _ = d.Close() }
			return d, nil, cleanup, nil
		}
		cleanup = func() {
			_ = d.Close()
			_ = t.Close()
		}
		return d, t, cleanup, nil

	default:
		return nil, nil, cleanup, eris.Errorf("unknown DEALS_SOURCE %q", cfg.DealsSource)
	}

	return deals, tiers, cleanup, nil
}

func buildLoader(cfg *config.Config, logger *utils.Logger) (*services.Loader, func(), error) {
	deals, tiers, cleanup, err := buildSources(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cache, err := services.NewLRUCache(cfg.CacheSize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	ttl := time.Duration(cfg.SourceTTLSec) * time.Second
	logger.Info("[loader] Source: %s | cache size: %d | ttl: %v", cfg.DealsSource, cfg.CacheSize, ttl)
	return services.NewLoader(deals, tiers, cache, ttl, logger), cleanup, nil
}

// loadView loads the dataset and applies the command-line filters.
func loadView(ctx context.Context, cfg *config.Config, logger *utils.Logger, f *filterFlags) (*services.Dataset, []*models.DealRecord, error) {
	spec, err := server.ParseFilter(f.year, f.status, f.buyer, f.dispo, f.acq, f.market)
	if err != nil {
		return nil, nil, err
	}
	spec.Now = time.Now()

	loader, cleanup, err := buildLoader(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	ds, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if ds.Quality.HasIssues() {
		logger.Warn("[normalizer] Data quality: %d bad numbers, %d bad dates, %d unknown statuses, %d unknown counties",
			ds.Quality.UnparseableNumbers, ds.Quality.UnparseableDates,
			ds.Quality.UnknownStatuses, ds.Quality.UnknownCounties)
	}
	return ds, services.Filter(ds.Deals, spec), nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger, addr string) error {
	loader, cleanup, err := buildLoader(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(server.NewHandler(loader, logger, nil)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSummary(ctx context.Context, cfg *config.Config, logger *utils.Logger, f *filterFlags, top int) error {
	ds, records, err := loadView(ctx, cfg, logger, f)
	if err != nil {
		return err
	}

	agg := services.NewAggregator(logger)
	report := agg.Summarize(records)
	services.AttachTiers(report, ds.Tiers)
	agg.Print(os.Stdout, report, top)

	stats := agg.OverallStats(records)
	fmt.Printf("  Close rate %s across %d deals, %d buyers\n", stats.CloseRateText, stats.TotalDeals, stats.TotalBuyers)

	buyers := agg.BuyerSummaries(records)
	if len(buyers) > 5 {
		buyers = buyers[:5]
	}
	for i, b := range buyers {
		fmt.Printf("  %d. %-28s sold %3d  GP %12s  counties %d\n",
			i+1, b.Buyer, b.SoldCount, services.Dollars(&b.TotalGP), b.CountyCount)
	}

	for _, t := range services.CountyTrends(records) {
		if t.Delta != 0 {
			fmt.Printf("  %-20s %s\n", t.Key, services.FormatTrend(t.Delta))
		}
	}
	fmt.Println()
	return nil
}

func runFeasibility(ctx context.Context, cfg *config.Config, logger *utils.Logger, f *filterFlags, county string, price float64) error {
	_, records, err := loadView(ctx, cfg, logger, f)
	if err != nil {
		return err
	}

	res, err := services.NewCalculator(logger).Evaluate(county, price, records)
	if err != nil {
		return err
	}

	label := strings.ToUpper(strings.ReplaceAll(string(res.Recommendation), "_", " "))
	fmt.Printf("\n  %s @ %s: \033[1m%s\033[0m (confidence %s)\n",
		res.CountyKey, services.Dollars(&res.ProposedPrice), label, res.Confidence)
	for _, line := range res.Rationale {
		fmt.Printf("   - %s\n", line)
	}
	fmt.Println()
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, logger *utils.Logger, f *filterFlags, out string) error {
	ds, records, err := loadView(ctx, cfg, logger, f)
	if err != nil {
		return err
	}

	report := services.NewAggregator(logger).Summarize(records)
	services.AttachTiers(report, ds.Tiers)

	w, err := storage.NewCSVWriter(out)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteSummaries(report); err != nil {
		return err
	}
	logger.Info("[storage] County summary saved to %s (%d counties)", out, len(report.Counties))
	return nil
}
