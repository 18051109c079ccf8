// Command seedcatalog fills the products table with a large deterministic
// pickle catalog for load and pagination testing. Re-running it updates the
// same rows.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	pkgconfig "github.com/Zchasse63/vercelpickle-sub006/pkg/config"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/database"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/logger"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/migrations"
)

type config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	Count     int    `env:"SEED_COUNT" envDefault:"10000"`
	BatchSize int    `env:"SEED_BATCH_SIZE" envDefault:"500"`
	RandSeed  uint64 `env:"SEED_RAND" envDefault:"42"`
	Postgres  database.PostgresConfig
}

func main() {
	var cfg config
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("seedcatalog", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	products := generate(cfg.RandSeed, cfg.Count)
	log.Info("generated products", slog.Int("count", len(products)))

	start := time.Now()
	if err := upsert(ctx, pool, products, cfg.BatchSize, log); err != nil {
		return err
	}
	log.Info("seed complete",
		slog.Int("products", len(products)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
