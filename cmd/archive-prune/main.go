package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tompaana/sensorcore-explorer/internal/adapter/postgres"
)

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		olderThan   = flag.Duration("older-than", 30*24*time.Hour, "Delete refresh reports finished longer ago than this")
		dryRun      = flag.Bool("dry-run", false, "Dry run mode (only count prunable reports)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}
	if *olderThan <= 0 {
		log.Fatalf("--older-than must be positive, got %s", *olderThan)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	start := time.Now()
	cutoff := start.Add(-*olderThan)
	slog.Info("Starting prune", "cutoff", cutoff.Format(time.RFC3339), "dry_run", *dryRun)

	n, err := postgres.NewRefreshArchive(pool).Prune(ctx, cutoff, *dryRun)
	if err != nil {
		log.Fatalf("Prune failed: %v", err)
	}

	if *dryRun {
		slog.Info("Prune summary", "prunable_reports", n, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Info("Prune summary", "deleted_reports", n, "duration_ms", time.Since(start).Milliseconds())
}

func sanitizeURL(url string) string {
	// Hide password in database URL for logging
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			credParts := strings.Split(parts[0], ":")
			if len(credParts) >= 3 {
				return strings.Join(credParts[:len(credParts)-1], ":") + ":***@" + parts[1]
			}
		}
	}
	return url
}
