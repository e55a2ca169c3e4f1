// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// inventoryd wires the counting app's sync stack together: local snapshot
// store, tombstone ledger, state store, a remote gateway (Postgres or HTTP,
// whichever the environment configures) and the reconciliation engine
// running on its periodic loop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
	"github.com/jasonhuangco/morning-lavender-inventory/pgstore"
	"github.com/jasonhuangco/morning-lavender-inventory/reconcile"
	"github.com/jasonhuangco/morning-lavender-inventory/remotehttp"
	"github.com/jasonhuangco/morning-lavender-inventory/snapshot"
)

func main() {
	if err := run(); err != nil {
		slog.Error("inventoryd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	snapshotPath := envOr("SNAPSHOT_PATH", "inventory-snapshot.db")
	snap, err := snapshot.OpenSQLite(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open local snapshot: %w", err)
	}
	defer snap.Close()

	ledger := reconcile.NewLedger(snap, logger)
	store := inventory.NewStore(snap, ledger, logger)
	if err := store.LoadSnapshot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := buildRemote(ctx, logger)
	if err != nil {
		return err
	}

	config := reconcile.DefaultConfig()
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_INTERVAL %q: %w", v, err)
		}
		config.SyncInterval = interval
	}

	engine := reconcile.NewEngine(store, remote, ledger, config, logger)

	// Warm start: pull the latest remote state before the loop begins. A
	// failure here is tolerable; the snapshot already hydrated the store.
	if err := engine.Reconcile(ctx, true); err != nil {
		logger.Warn("initial pull failed, continuing from local snapshot", "error", err)
	}

	logger.Info("inventoryd started", "sync_interval", config.SyncInterval)
	engine.Run(ctx)
	logger.Info("inventoryd stopped")
	return nil
}

func buildRemote(ctx context.Context, logger *slog.Logger) (reconcile.RemoteStore, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		return pgstore.NewStore(ctx, pool, logger)
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("either DATABASE_URL or API_BASE_URL must be set")
	}
	var token remotehttp.TokenFunc
	if secret := os.Getenv("API_JWT_SECRET"); secret != "" {
		auth := remotehttp.NewTokenAuth(secret)
		token = auth.TokenSource(envOr("API_USER", "inventoryd"), envOr("DEVICE_ID", "inventoryd"), time.Hour)
	} else {
		token = remotehttp.StaticToken(os.Getenv("API_TOKEN"))
	}
	return remotehttp.NewClient(baseURL, token, logger), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
