package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"codeberg.org/mutker/axemon/internal/aggregate"
	"codeberg.org/mutker/axemon/internal/bitaxe"
	"codeberg.org/mutker/axemon/internal/config"
	"codeberg.org/mutker/axemon/internal/logger"
	"codeberg.org/mutker/axemon/internal/poller"
	"codeberg.org/mutker/axemon/internal/store"
)

// summaryEvery controls how many poll intervals pass between fleet
// summary log lines.
const summaryEvery = 10

var cfg *config.Config

func init() {
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	// Debug and verbose flags outrank the configured level.
	if !cfg.Debug && !cfg.Verbose {
		logger.SetLogLevel(logger.ParseLevel(cfg.LogLevel))
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	st, err := store.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database).Msg("failed to open metrics store")
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	fleet, err := buildFleet(ctx, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble fleet")
	}

	queries := aggregate.NewService(st)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fleet.Run(gctx)
	})
	g.Go(func() error {
		summaryLoop(gctx, fleet, queries)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func buildFleet(ctx context.Context, st *store.Store) (*poller.Fleet, error) {
	pollerCfg := poller.Config{
		Interval:         time.Duration(cfg.Interval) * time.Second,
		FetchTimeout:     time.Duration(cfg.FetchTimeout) * time.Second,
		MaxBackoff:       time.Duration(cfg.MaxBackoff) * time.Second,
		OfflineThreshold: cfg.OfflineThreshold,
	}

	fleet, err := poller.NewFleet(pollerCfg, st)
	if err != nil {
		return nil, err
	}

	devices := cfg.EnabledDevices()
	if len(devices) == 0 {
		logger.Warn().Msg("No enabled devices configured")
	}

	for _, d := range devices {
		if err := st.RegisterDevice(ctx, &store.Device{ID: d.Name, IPAddress: d.IP}); err != nil {
			return nil, err
		}

		fetcher := bitaxe.NewFetcher(d.IP, bitaxe.WithTimeout(pollerCfg.FetchTimeout))
		fleet.Add(poller.Device{ID: d.Name, Address: d.IP}, fetcher)

		logger.Info().Str("device", d.Name).Str("ip", d.IP).Msg("Device registered")
	}

	return fleet, nil
}

// summaryLoop periodically logs a fleet-level digest so long running
// deployments leave a coarse trace even at info level.
func summaryLoop(ctx context.Context, fleet *poller.Fleet, queries *aggregate.Service) {
	interval := time.Duration(cfg.Interval) * time.Second * summaryEvery
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logSummary(ctx, fleet, queries)
		}
	}
}

func logSummary(ctx context.Context, fleet *poller.Fleet, queries *aggregate.Service) {
	online := 0
	for _, s := range fleet.Statuses() {
		if s.Online {
			online++
		}
	}

	overview, err := queries.FleetOverview(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build fleet summary")
		return
	}

	logger.Info().
		Int("devices", len(overview.Devices)).
		Int("online", online).
		Float64("total_hashrate_ghs", overview.TotalHashrate).
		Float64("total_power_w", overview.TotalPower).
		Float64("best_diff", overview.BestDiff).
		Msg("Fleet summary")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
