// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	// missing key reads as nil, not an error
	value, err := store.Get(KeyProducts)
	require.NoError(t, err)
	require.Nil(t, value)

	require.NoError(t, store.Set(KeyProducts, []byte(`[{"id":"p1"}]`)))
	value, err = store.Get(KeyProducts)
	require.NoError(t, err)
	require.Equal(t, []byte(`[{"id":"p1"}]`), value)

	// second write replaces
	require.NoError(t, store.Set(KeyProducts, []byte(`[]`)))
	value, err = store.Get(KeyProducts)
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), value)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyDeletedProducts, []byte(`["p1"]`)))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(KeyDeletedProducts)
	require.NoError(t, err)
	require.Equal(t, []byte(`["p1"]`), value)
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	original := []byte(`{"a":1}`)
	require.NoError(t, store.Set("k", original))

	got, err := store.Get("k")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := store.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"a":1}`), again)
}
