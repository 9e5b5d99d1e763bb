package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"shorturl.local/internal/platform/config"
	"shorturl.local/internal/platform/db"
	"shorturl.local/internal/platform/migrate"
)

func main() {
	dir := flag.String("dir", "migrations", "migrations directory")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dbPool, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	applied, err := migrate.Up(ctx, dbPool, *dir)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("migrations complete", "applied", applied)
}
