// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// initializeSchemaInTx creates the remote tables if they do not exist.
// Nested value types (product availability entries, session items) are kept
// as JSONB documents on their owning row: the gateway contract is whole-row
// fetch/upsert, so there is nothing to join on.
func initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id      TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS suppliers (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS products (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			category_ids      JSONB NOT NULL DEFAULT '[]',
			supplier_ids      JSONB NOT NULL DEFAULT '[]',
			locations         JSONB NOT NULL DEFAULT '[]',
			requires_quantity BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			location_id  TEXT NOT NULL,
			user_name    TEXT NOT NULL,
			start_date   TIMESTAMPTZ NOT NULL,
			end_date     TIMESTAMPTZ,
			items        JSONB NOT NULL DEFAULT '[]',
			is_submitted BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS order_history (
			session_id       TEXT NOT NULL,
			product_id       TEXT NOT NULL,
			location_id      TEXT NOT NULL,
			order_date       TIMESTAMPTZ NOT NULL,
			quantity_ordered DOUBLE PRECISION,
			suppliers        JSONB NOT NULL DEFAULT '[]',
			category_ids     JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (session_id, product_id)
		)`,

		`CREATE TABLE IF NOT EXISTS app_settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_order_history_product
			ON order_history (product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_date
			ON sessions (start_date DESC)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema object: %w", err)
		}
	}
	return nil
}
