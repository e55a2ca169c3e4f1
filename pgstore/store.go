// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// Package pgstore implements the remote-store contract against a Postgres
// database via pgx. It is one of two interchangeable gateway adapters; the
// engine never knows which one it is talking to.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
)

// Store is a RemoteStore backed by a pgx connection pool. The pool's
// lifecycle belongs to the caller.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Postgres-backed remote store and bootstraps the schema.
func NewStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return initializeSchemaInTx(ctx, tx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote schema: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) FetchLocations(ctx context.Context) ([]inventory.Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, address FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	defer rows.Close()

	var out []inventory.Location
	for rows.Next() {
		var l inventory.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) FetchCategories(ctx context.Context) ([]inventory.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	defer rows.Close()

	var out []inventory.Category
	for rows.Next() {
		var c inventory.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FetchSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suppliers: %w", err)
	}
	defer rows.Close()

	var out []inventory.Supplier
	for rows.Next() {
		var sp inventory.Supplier
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) FetchProducts(ctx context.Context) ([]inventory.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category_ids, supplier_ids, locations, requires_quantity
		FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	var out []inventory.Product
	for rows.Next() {
		var p inventory.Product
		var categoryIDs, supplierIDs, locations []byte
		if err := rows.Scan(&p.ID, &p.Name, &categoryIDs, &supplierIDs, &locations, &p.RequiresQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if err := decodeJSONColumns(map[string]decodeTarget{
			"category_ids": {categoryIDs, &p.CategoryIDs},
			"supplier_ids": {supplierIDs, &p.SupplierIDs},
			"locations":    {locations, &p.Locations},
		}); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) FetchSessions(ctx context.Context) ([]inventory.InventorySession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, location_id, user_name, start_date, end_date, items, is_submitted
		FROM sessions ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	defer rows.Close()

	var out []inventory.InventorySession
	for rows.Next() {
		var sess inventory.InventorySession
		var items []byte
		if err := rows.Scan(&sess.ID, &sess.LocationID, &sess.UserName,
			&sess.StartDate, &sess.EndDate, &items, &sess.IsSubmitted); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := json.Unmarshal(items, &sess.Items); err != nil {
			return nil, fmt.Errorf("failed to decode session %s items: %w", sess.ID, err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) FetchOrderHistory(ctx context.Context) ([]inventory.OrderHistoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, product_id, location_id, order_date, quantity_ordered, suppliers, category_ids
		FROM order_history ORDER BY order_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order history: %w", err)
	}
	defer rows.Close()

	var out []inventory.OrderHistoryItem
	for rows.Next() {
		var h inventory.OrderHistoryItem
		var suppliers, categoryIDs []byte
		if err := rows.Scan(&h.SessionID, &h.ProductID, &h.LocationID,
			&h.OrderDate, &h.QuantityOrdered, &suppliers, &categoryIDs); err != nil {
			return nil, fmt.Errorf("failed to scan order history row: %w", err)
		}
		if err := decodeJSONColumns(map[string]decodeTarget{
			"suppliers":    {suppliers, &h.Suppliers},
			"category_ids": {categoryIDs, &h.CategoryIDs},
		}); err != nil {
			return nil, fmt.Errorf("failed to decode order history row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UpsertLocation(ctx context.Context, l inventory.Location) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO locations (id, name, address) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address
	`, l.ID, l.Name, l.Address)
	if err != nil {
		return fmt.Errorf("failed to upsert location %s: %w", l.ID, err)
	}
	return nil
}

func (s *Store) UpsertCategory(ctx context.Context, c inventory.Category) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, color) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color
	`, c.ID, c.Name, c.Color)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) UpsertSupplier(ctx context.Context, sp inventory.Supplier) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO suppliers (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, sp.ID, sp.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier %s: %w", sp.ID, err)
	}
	return nil
}

func (s *Store) UpsertProduct(ctx context.Context, p inventory.Product) error {
	categoryIDs, supplierIDs, locations, err := encodeProductColumns(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO products (id, name, category_ids, supplier_ids, locations, requires_quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category_ids = EXCLUDED.category_ids,
			supplier_ids = EXCLUDED.supplier_ids,
			locations = EXCLUDED.locations,
			requires_quantity = EXCLUDED.requires_quantity
	`, p.ID, p.Name, categoryIDs, supplierIDs, locations, p.RequiresQuantity)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) UpsertSession(ctx context.Context, sess inventory.InventorySession) error {
	items, err := json.Marshal(sess.Items)
	if err != nil {
		return fmt.Errorf("failed to encode session %s items: %w", sess.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, location_id, user_name, start_date, end_date, items, is_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			location_id = EXCLUDED.location_id,
			user_name = EXCLUDED.user_name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			items = EXCLUDED.items,
			is_submitted = EXCLUDED.is_submitted
	`, sess.ID, sess.LocationID, sess.UserName, sess.StartDate, sess.EndDate, items, sess.IsSubmitted)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", sess.ID, err)
	}
	return nil
}

// InsertOrderHistory bulk-inserts history rows. Rows already present (same
// session and product) are left untouched: history is immutable once
// written, and the engine re-pushes the whole local history every cycle.
func (s *Store) InsertOrderHistory(ctx context.Context, items []inventory.OrderHistoryItem) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, h := range items {
			suppliers, err := json.Marshal(h.Suppliers)
			if err != nil {
				return fmt.Errorf("failed to encode suppliers: %w", err)
			}
			categoryIDs, err := json.Marshal(h.CategoryIDs)
			if err != nil {
				return fmt.Errorf("failed to encode category ids: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO order_history
					(session_id, product_id, location_id, order_date, quantity_ordered, suppliers, category_ids)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (session_id, product_id) DO NOTHING
			`, h.SessionID, h.ProductID, h.LocationID, h.OrderDate, h.QuantityOrdered, suppliers, categoryIDs)
			if err != nil {
				return fmt.Errorf("failed to insert order history row: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location %s: %w", id, err)
	}
	return nil
}

// DeleteCategory strips the category id from every product and every
// order-history row, then deletes the category row. Both steps are
// attempted even when the first fails, so a dangling reference elsewhere
// can never make the category undeletable.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var errs []error
	if _, err := s.pool.Exec(ctx, `
		UPDATE products SET category_ids = category_ids - $1::text
		WHERE category_ids ? $1::text
	`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to strip category %s from products: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE order_history SET category_ids = category_ids - $1::text
		WHERE category_ids ? $1::text
	`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to strip category %s from order history: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete category %s: %w", id, err))
	}
	return errors.Join(errs...)
}

// DeleteSupplier strips the supplier id from every product, then deletes
// the supplier row.
func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	var errs []error
	if _, err := s.pool.Exec(ctx, `
		UPDATE products SET supplier_ids = supplier_ids - $1::text
		WHERE supplier_ids ? $1::text
	`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to strip supplier %s from products: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete supplier %s: %w", id, err))
	}
	return errors.Join(errs...)
}

// DeleteProduct purges the product from every session's item list and from
// order history, then deletes the product row. As with categories, every
// step is attempted regardless of earlier failures.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	var errs []error
	if _, err := s.pool.Exec(ctx, `
		UPDATE sessions SET items = COALESCE(
			(SELECT jsonb_agg(elem) FROM jsonb_array_elements(items) elem
			 WHERE elem->>'product_id' <> $1),
			'[]'::jsonb)
		WHERE EXISTS (SELECT 1 FROM jsonb_array_elements(items) e WHERE e->>'product_id' = $1)
	`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to strip product %s from sessions: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM order_history WHERE product_id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete order history for product %s: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete product %s: %w", id, err))
	}
	return errors.Join(errs...)
}

// DeleteSession removes a session and, as a cascade, every order-history
// row created from it.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	var errs []error
	if _, err := s.pool.Exec(ctx, `DELETE FROM order_history WHERE session_id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete order history for session %s: %w", id, err))
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete session %s: %w", id, err))
	}
	return errors.Join(errs...)
}

func (s *Store) FetchSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}

type decodeTarget struct {
	raw    []byte
	target any
}

func decodeJSONColumns(columns map[string]decodeTarget) error {
	for name, c := range columns {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.target); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	return nil
}

func encodeProductColumns(p inventory.Product) (categoryIDs, supplierIDs, locations []byte, err error) {
	if categoryIDs, err = json.Marshal(orEmpty(p.CategoryIDs)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode category ids: %w", err)
	}
	if supplierIDs, err = json.Marshal(orEmpty(p.SupplierIDs)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode supplier ids: %w", err)
	}
	locs := p.Locations
	if locs == nil {
		locs = []inventory.ProductLocation{}
	}
	if locations, err = json.Marshal(locs); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode locations: %w", err)
	}
	return categoryIDs, supplierIDs, locations, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
