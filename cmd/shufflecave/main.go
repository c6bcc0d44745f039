// Package main provides the cave shuffler binary: it reads an area
// descriptor, regenerates its layout and writes the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/cave"
	"github.com/cory-johannsen/caveshuffle/internal/config"
	"github.com/cory-johannsen/caveshuffle/internal/observability"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	areaPath := flag.String("area", "", "path to the area YAML descriptor")
	outPath := flag.String("out", "-", "output path for the shuffled area; - = stdout")
	seed := flag.Uint64("seed", 0, "random seed; 0 = shuffle.seed from config, or a random seed")
	persist := flag.Bool("persist", false, "record the layout in the database")
	traceRNG := flag.Bool("trace-rng", false, "log every random draw at debug level")
	flag.Parse()

	if *areaPath == "" {
		log.Fatalf("-area is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}
	if *persist {
		cfg.Storage.Enabled = true
		if err := cfg.Validate(); err != nil {
			log.Fatalf("validating config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.Shuffle.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *areaPath, *outPath, *traceRNG, logger); err != nil {
		logger.Fatal("shuffle failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	logger.Info("done", zap.Duration("elapsed", time.Since(start)))
}

func run(ctx context.Context, cfg config.Config, areaPath, outPath string, traceRNG bool, logger *zap.Logger) error {
	a, err := area.LoadFromFile(areaPath)
	if err != nil {
		return err
	}

	overrides, err := cfg.StrategyOverrides()
	if err != nil {
		return err
	}
	table, err := cave.DefaultTable().WithOverrides(overrides)
	if err != nil {
		return err
	}

	var src random.Source
	if cfg.Shuffle.Seed != 0 {
		src = random.NewSeeded(cfg.Shuffle.Seed)
	} else {
		src = random.NewCryptoSource()
	}
	if traceRNG {
		src = random.NewLoggedSource(src, logger)
	}

	s, err := cave.New(a, src, table.Lookup(a.ID),
		cave.WithConfig(cfg.Shuffle),
		cave.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := s.Shuffle(); err != nil {
		return err
	}

	if err := write(a, outPath); err != nil {
		return err
	}

	if !cfg.Storage.Enabled {
		return nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Health(ctx, 5*time.Second); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	if err := pool.RequireSchema(ctx); err != nil {
		return err
	}
	saved, err := pool.Layouts().Save(ctx,
		postgres.NewLayout(s.RunID(), a, s.Kind().String(), cfg.Shuffle.Seed, s.Attempts()))
	if err != nil {
		return err
	}
	logger.Info("layout recorded", zap.Int64("layout_id", saved.ID), zap.String("run_id", saved.RunID.String()))
	return nil
}

func write(a *area.Area, path string) error {
	if path != "-" {
		return area.SaveToFile(a, path)
	}
	data, err := area.Marshal(a)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
