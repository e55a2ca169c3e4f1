// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
)

// openTestStore connects to the database named by TEST_DATABASE_URL and
// skips the test when it is not set.
func openTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	store, err := NewStore(ctx, pool, nil)
	require.NoError(t, err)
	return store, pool.Close
}

func TestProductUpsertFetchDelete(t *testing.T) {
	store, cleanup := openTestStore(t)
	defer cleanup()
	ctx := context.Background()

	threshold := 5.0
	product := inventory.Product{
		ID:               uuid.NewString(),
		Name:             "zzz-test-oat-milk",
		CategoryIDs:      []string{"cat-a"},
		SupplierIDs:      []string{"sup-a"},
		RequiresQuantity: true,
		Locations: []inventory.ProductLocation{
			{LocationID: "loc-a", MinThreshold: &threshold, IsAvailable: true},
		},
	}
	require.NoError(t, store.UpsertProduct(ctx, product))

	// replace wins over insert for the same id
	product.Name = "zzz-test-oat-milk-v2"
	require.NoError(t, store.UpsertProduct(ctx, product))

	products, err := store.FetchProducts(ctx)
	require.NoError(t, err)
	var found *inventory.Product
	for i := range products {
		if products[i].ID == product.ID {
			found = &products[i]
		}
	}
	require.NotNil(t, found)
	require.Equal(t, product, *found)

	require.NoError(t, store.DeleteProduct(ctx, product.ID))
	products, err = store.FetchProducts(ctx)
	require.NoError(t, err)
	for _, p := range products {
		require.NotEqual(t, product.ID, p.ID)
	}
}

func TestDeleteCategoryStripsReferences(t *testing.T) {
	store, cleanup := openTestStore(t)
	defer cleanup()
	ctx := context.Background()

	category := inventory.Category{ID: uuid.NewString(), Name: "zzz-test-cat"}
	require.NoError(t, store.UpsertCategory(ctx, category))

	product := inventory.Product{
		ID:          uuid.NewString(),
		Name:        "zzz-test-product",
		CategoryIDs: []string{category.ID, "keep-me"},
	}
	require.NoError(t, store.UpsertProduct(ctx, product))
	defer store.DeleteProduct(ctx, product.ID)

	require.NoError(t, store.DeleteCategory(ctx, category.ID))

	products, err := store.FetchProducts(ctx)
	require.NoError(t, err)
	for _, p := range products {
		if p.ID == product.ID {
			require.NotContains(t, p.CategoryIDs, category.ID)
			require.Contains(t, p.CategoryIDs, "keep-me")
		}
	}

	categories, err := store.FetchCategories(ctx)
	require.NoError(t, err)
	for _, c := range categories {
		require.NotEqual(t, category.ID, c.ID)
	}
}

func TestDeleteSessionCascadesHistory(t *testing.T) {
	store, cleanup := openTestStore(t)
	defer cleanup()
	ctx := context.Background()

	session := inventory.InventorySession{
		ID:         uuid.NewString(),
		LocationID: "loc-a",
		UserName:   "test",
		StartDate:  time.Now().UTC().Truncate(time.Millisecond),
		Items:      []inventory.InventoryItem{{ProductID: "p1", LocationID: "loc-a", ShouldOrder: true}},
	}
	require.NoError(t, store.UpsertSession(ctx, session))

	qty := 2.0
	history := []inventory.OrderHistoryItem{{
		SessionID:       session.ID,
		ProductID:       "p1",
		LocationID:      "loc-a",
		OrderDate:       time.Now().UTC().Truncate(time.Millisecond),
		QuantityOrdered: &qty,
		Suppliers:       []string{"Roastery"},
		CategoryIDs:     []string{"c1"},
	}}
	require.NoError(t, store.InsertOrderHistory(ctx, history))
	// re-pushing the same rows must not duplicate them
	require.NoError(t, store.InsertOrderHistory(ctx, history))

	fetched, err := store.FetchOrderHistory(ctx)
	require.NoError(t, err)
	count := 0
	for _, h := range fetched {
		if h.SessionID == session.ID {
			count++
		}
	}
	require.Equal(t, 1, count)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	fetched, err = store.FetchOrderHistory(ctx)
	require.NoError(t, err)
	for _, h := range fetched {
		require.NotEqual(t, session.ID, h.SessionID)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store, cleanup := openTestStore(t)
	defer cleanup()
	ctx := context.Background()

	key := "zzz-test-" + uuid.NewString()
	require.NoError(t, store.UpsertSetting(ctx, key, "one"))
	require.NoError(t, store.UpsertSetting(ctx, key, "two"))

	settings, err := store.FetchSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", settings[key])
}
