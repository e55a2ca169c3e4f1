// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jasonhuangco/morning-lavender-inventory/snapshot"
)

type recordedDeletion struct {
	kind DeletedKind
	id   string
}

type fakeRecorder struct {
	deletions []recordedDeletion
}

func (f *fakeRecorder) RecordDeletion(kind DeletedKind, id string) {
	f.deletions = append(f.deletions, recordedDeletion{kind, id})
}

func draftSession(id, locationID string, items ...InventoryItem) InventorySession {
	return InventorySession{
		ID:         id,
		LocationID: locationID,
		UserName:   "Ana",
		StartDate:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Items:      items,
	}
}

func TestSetSessionsAdoptsKnownCurrentSession(t *testing.T) {
	store := NewStore(nil, nil, nil)
	current := draftSession("s1", "l1")
	store.SetCurrentSession(&current)

	synced := draftSession("s1", "l1", InventoryItem{ProductID: "p1", LocationID: "l1", ShouldOrder: true})
	store.SetSessions([]InventorySession{synced})

	got := store.CurrentSession()
	require.NotNil(t, got)
	require.Equal(t, synced, *got)
}

func TestSetSessionsPreservesUnknownCurrentSession(t *testing.T) {
	store := NewStore(nil, nil, nil)
	current := draftSession("local-draft", "l1", InventoryItem{ProductID: "p1", LocationID: "l1"})
	store.SetCurrentSession(&current)

	store.SetSessions([]InventorySession{draftSession("other", "l2")})

	got := store.CurrentSession()
	require.NotNil(t, got)
	require.Equal(t, current, *got)
}

func TestSetCurrentSessionAppendsToSessions(t *testing.T) {
	store := NewStore(nil, nil, nil)
	fresh := draftSession("s1", "l1")
	store.SetCurrentSession(&fresh)

	state := store.State()
	require.Len(t, state.Sessions, 1)
	require.Equal(t, "s1", state.Sessions[0].ID)

	// setting it again must not duplicate the listing entry
	store.SetCurrentSession(&fresh)
	require.Len(t, store.State().Sessions, 1)
}

func TestUpdateSessionKeepsBothViewsIdentical(t *testing.T) {
	store := NewStore(nil, nil, nil)
	sess := draftSession("s1", "l1")
	store.SetCurrentSession(&sess)

	updated := draftSession("s1", "l1", InventoryItem{ProductID: "p1", LocationID: "l1", ShouldOrder: true})
	store.UpdateSession(updated)

	state := store.State()
	require.Len(t, state.Sessions, 1)
	require.Equal(t, updated, state.Sessions[0])
	require.Equal(t, updated, *state.CurrentSession)
}

func TestUpdateSessionAppendsWhenAbsent(t *testing.T) {
	store := NewStore(nil, nil, nil)
	store.UpdateSession(draftSession("s9", "l1"))
	require.Len(t, store.State().Sessions, 1)
}

func TestDeleteCategoryStripsProductReferences(t *testing.T) {
	recorder := &fakeRecorder{}
	store := NewStore(nil, recorder, nil)
	store.SetCategories([]Category{{ID: "c1", Name: "Dairy"}, {ID: "c2", Name: "Dry"}})
	store.SetProducts([]Product{
		{ID: "p1", Name: "Milk", CategoryIDs: []string{"c1", "c2"}},
		{ID: "p2", Name: "Beans", CategoryIDs: []string{"c2"}},
	})

	store.DeleteCategory("c1")

	state := store.State()
	require.Len(t, state.Categories, 1)
	require.Equal(t, "c2", state.Categories[0].ID)
	for _, p := range state.Products {
		require.NotContains(t, p.CategoryIDs, "c1")
	}
	require.Equal(t, []recordedDeletion{{DeletedCategory, "c1"}}, recorder.deletions)
}

func TestDeleteSupplierStripsProductReferences(t *testing.T) {
	recorder := &fakeRecorder{}
	store := NewStore(nil, recorder, nil)
	store.SetSuppliers([]Supplier{{ID: "sup1", Name: "Roastery"}})
	store.SetProducts([]Product{{ID: "p1", Name: "Espresso", SupplierIDs: []string{"sup1"}}})

	store.DeleteSupplier("sup1")

	state := store.State()
	require.Empty(t, state.Suppliers)
	require.Empty(t, state.Products[0].SupplierIDs)
	require.Equal(t, []recordedDeletion{{DeletedSupplier, "sup1"}}, recorder.deletions)
}

func TestDeleteProductRemovesOnlyItsCurrentSessionItem(t *testing.T) {
	recorder := &fakeRecorder{}
	store := NewStore(nil, recorder, nil)
	store.SetProducts([]Product{{ID: "p1", Name: "Milk"}, {ID: "p2", Name: "Beans"}})

	sess := draftSession("s1", "l1",
		InventoryItem{ProductID: "p1", LocationID: "l1"},
		InventoryItem{ProductID: "p2", LocationID: "l1", ShouldOrder: true},
	)
	store.SetCurrentSession(&sess)

	store.DeleteProduct("p1")

	state := store.State()
	require.Len(t, state.Products, 1)
	require.Equal(t, "p2", state.Products[0].ID)
	require.Len(t, state.CurrentSession.Items, 1)
	require.Equal(t, "p2", state.CurrentSession.Items[0].ProductID)
	// sessions-collection view of the same session stays in step
	require.Equal(t, *state.CurrentSession, state.Sessions[0])
	require.Equal(t, []recordedDeletion{{DeletedProduct, "p1"}}, recorder.deletions)
}

func TestDeleteSessionCascadesOrderHistory(t *testing.T) {
	recorder := &fakeRecorder{}
	store := NewStore(nil, recorder, nil)
	store.UpdateSession(draftSession("s1", "l1"))
	store.UpdateSession(draftSession("s2", "l1"))
	store.SetOrderHistory([]OrderHistoryItem{
		{ProductID: "p1", SessionID: "s1", OrderDate: time.Now()},
		{ProductID: "p2", SessionID: "s2", OrderDate: time.Now()},
	})

	store.DeleteSession("s1")

	state := store.State()
	require.Len(t, state.Sessions, 1)
	require.Equal(t, "s2", state.Sessions[0].ID)
	require.Len(t, state.OrderHistory, 1)
	require.Equal(t, "s2", state.OrderHistory[0].SessionID)
	require.Equal(t, []recordedDeletion{{DeletedSession, "s1"}}, recorder.deletions)
}

func TestDeleteCurrentSessionClearsReference(t *testing.T) {
	store := NewStore(nil, nil, nil)
	sess := draftSession("s1", "l1")
	store.SetCurrentSession(&sess)

	store.DeleteSession("s1")
	require.Nil(t, store.CurrentSession())
}

func TestMirrorAndLoadSnapshotRoundTrip(t *testing.T) {
	snap := snapshot.NewMemoryStore()
	store := NewStore(snap, nil, nil)
	store.SetLocations([]Location{{ID: "l1", Name: "Downtown"}})
	store.SetProducts([]Product{{ID: "p1", Name: "Milk", RequiresQuantity: true}})
	store.UpdateSession(draftSession("s1", "l1"))

	// mirrored bytes decode to the same collection
	data, err := snap.Get(snapshot.KeyLocations)
	require.NoError(t, err)
	var locations []Location
	require.NoError(t, json.Unmarshal(data, &locations))
	require.Equal(t, []Location{{ID: "l1", Name: "Downtown"}}, locations)

	restored := NewStore(snap, nil, nil)
	require.NoError(t, restored.LoadSnapshot())
	state := restored.State()
	require.Equal(t, store.State().Locations, state.Locations)
	require.Equal(t, store.State().Products, state.Products)
	require.Equal(t, store.State().Sessions, state.Sessions)
}

func TestStateReturnsIndependentCopy(t *testing.T) {
	store := NewStore(nil, nil, nil)
	store.SetProducts([]Product{{ID: "p1", Name: "Milk", CategoryIDs: []string{"c1"}}})

	state := store.State()
	state.Products[0].Name = "changed"
	state.Products[0].CategoryIDs[0] = "changed"

	fresh := store.State()
	require.Equal(t, "Milk", fresh.Products[0].Name)
	require.Equal(t, "c1", fresh.Products[0].CategoryIDs[0])
}
