// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
)

// RemoteStore is the narrow contract the engine consumes against the remote
// copy of the dataset. Fetches return collections ordered by their natural
// display key (name, or start date descending for sessions). Upserts are
// insert-or-replace keyed by id. The store never retries internally; retry
// policy belongs to the engine.
//
// DeleteCategory and DeleteProduct are compound: the implementation first
// strips the reference from all dependent rows (product category lists;
// session item lists; order-history rows) and then deletes the row itself,
// attempting both steps even if the first fails so a dangling reference can
// never make an entity undeletable.
type RemoteStore interface {
	FetchLocations(ctx context.Context) ([]inventory.Location, error)
	FetchCategories(ctx context.Context) ([]inventory.Category, error)
	FetchSuppliers(ctx context.Context) ([]inventory.Supplier, error)
	FetchProducts(ctx context.Context) ([]inventory.Product, error)
	FetchSessions(ctx context.Context) ([]inventory.InventorySession, error)
	FetchOrderHistory(ctx context.Context) ([]inventory.OrderHistoryItem, error)

	UpsertLocation(ctx context.Context, location inventory.Location) error
	UpsertCategory(ctx context.Context, category inventory.Category) error
	UpsertSupplier(ctx context.Context, supplier inventory.Supplier) error
	UpsertProduct(ctx context.Context, product inventory.Product) error
	UpsertSession(ctx context.Context, session inventory.InventorySession) error
	InsertOrderHistory(ctx context.Context, items []inventory.OrderHistoryItem) error

	DeleteLocation(ctx context.Context, id string) error
	DeleteCategory(ctx context.Context, id string) error
	DeleteSupplier(ctx context.Context, id string) error
	DeleteProduct(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error

	FetchSettings(ctx context.Context) (map[string]string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}
