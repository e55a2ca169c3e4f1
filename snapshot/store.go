// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// Package snapshot is the local durable cache of the application dataset.
// It is a plain byte store keyed by a fixed set of names, written after
// every state change and read back only at cold start or as a fallback
// when the remote side is unreachable.
package snapshot

// Fixed keys, one per top-level collection plus one pair per tombstone set.
const (
	KeyLocations    = "locations"
	KeyCategories   = "categories"
	KeySuppliers    = "suppliers"
	KeyProducts     = "products"
	KeySessions     = "sessions"
	KeyOrderHistory = "order-history"

	KeyDeletedCategories        = "deleted-categories"
	KeyDeletedCategoriesStamped = "deleted-categories-with-timestamp"
	KeyDeletedProducts          = "deleted-products"
	KeyDeletedProductsStamped   = "deleted-products-with-timestamp"
	KeyDeletedSessions          = "deleted-sessions"
	KeyDeletedSessionsStamped   = "deleted-sessions-with-timestamp"
	KeyDeletedSuppliers         = "deleted-suppliers"
	KeyDeletedSuppliersStamped  = "deleted-suppliers-with-timestamp"
)

// Store is the durable key-value port. Get returns (nil, nil) for a key
// that was never written. Writes are synchronous and best-effort from the
// caller's point of view: a failed write degrades durability, it never
// blocks the mutation that triggered it.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}
