package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/nyaay-triage-go/internal/service/cache"
	"github.com/kapu/nyaay-triage-go/internal/service/catalog"
	"github.com/kapu/nyaay-triage-go/internal/service/database"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"go.uber.org/zap"
)

var (
	dryRun     = flag.Bool("dry-run", false, "Parse the CSV files without writing to the database")
	replace    = flag.Bool("replace", true, "Truncate the tables before loading")
	lawyersCSV = flag.String("lawyers", "data/lawyers.csv", "Lawyers catalog CSV")
	ngosCSV    = flag.String("ngos", "data/ngos.csv", "NGOs catalog CSV")
	lawyersTab = flag.String("lawyers-table", "lawyers", "Lawyers table name")
	ngosTab    = flag.String("ngos-table", "ngos", "NGOs table name")
	dbHost     = flag.String("db-host", envOr("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	dbPort     = flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser     = flag.String("db-user", envOr("POSTGRES_USER", "nyaay"), "PostgreSQL user")
	dbPass     = flag.String("db-pass", envOr("POSTGRES_PASSWORD", ""), "PostgreSQL password")
	dbName     = flag.String("db-name", envOr("POSTGRES_DB", "nyaay"), "PostgreSQL database")
	verbose    = flag.Bool("verbose", false, "Verbose output")

	invalidate = flag.Bool("invalidate-snapshot", envOr("REDIS_ENABLED", "false") == "true", "Delete the Redis catalog snapshots after seeding")
	redisHost  = flag.String("redis-host", envOr("REDIS_HOST", "localhost"), "Redis host")
	redisPort  = flag.Int("redis-port", 6379, "Redis port")
	redisPass  = flag.String("redis-pass", envOr("REDIS_PASSWORD", ""), "Redis password")
	redisDB    = flag.Int("redis-db", 0, "Redis database")
)

var loadEnvOnce sync.Once

// envOr reads flag defaults; .env is loaded on first use since flag
// variables are initialized before init runs.
func envOr(key, fallback string) string {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger, err := util.NewLogger(level, "console", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("Catalog seed failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tables := map[string]string{
		catalog.NameLawyers: *lawyersTab,
		catalog.NameNGOs:    *ngosTab,
	}
	source := catalog.NewCSVSource(map[string]string{
		catalog.NameLawyers: *lawyersCSV,
		catalog.NameNGOs:    *ngosCSV,
	}, logger)

	catalogs, err := catalog.LoadAll(ctx, source, catalog.NameLawyers, catalog.NameNGOs)
	if err != nil {
		return fmt.Errorf("load CSV catalogs: %w", err)
	}

	for _, name := range []string{catalog.NameLawyers, catalog.NameNGOs} {
		cat := catalogs[name]
		logger.Info("Parsed catalog",
			zap.String("catalog", name),
			zap.Int("rows", cat.Len()),
			zap.Strings("columns", cat.Columns()),
			zap.Strings("types", catalog.ColumnTypes(cat)),
			zap.String("secondary_key", cat.SecondaryKey()),
		)
	}

	if *dryRun {
		logger.Info("Dry run complete, no database changes made")
		return nil
	}

	postgres, err := database.NewPostgresService(ctx, database.PostgresConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPass,
		Database: *dbName,
	}, logger)
	if err != nil {
		return err
	}
	defer postgres.Close()

	for _, name := range []string{catalog.NameLawyers, catalog.NameNGOs} {
		n, err := catalog.WriteTable(ctx, postgres.GetDB(), tables[name], catalogs[name], *replace)
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		logger.Info("Seeded catalog table",
			zap.String("catalog", name),
			zap.String("table", tables[name]),
			zap.Int("rows", n),
		)
	}

	if !*invalidate {
		return nil
	}
	return invalidateSnapshots(ctx, logger)
}

// invalidateSnapshots makes running servers reload the new rows on their next
// start instead of serving a stale snapshot.
func invalidateSnapshots(ctx context.Context, logger *zap.Logger) error {
	cacheSvc, err := cache.NewCacheService(ctx, cache.CacheConfig{
		Host:     *redisHost,
		Port:     *redisPort,
		Password: *redisPass,
		DB:       *redisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer cacheSvc.Close()

	if err := catalog.InvalidateSnapshots(ctx, cacheSvc, catalog.NameLawyers, catalog.NameNGOs); err != nil {
		return err
	}
	logger.Info("Catalog snapshots invalidated")
	return nil
}
