// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// Package reconcile merges the local and remote copies of the inventory
// dataset into one consistent view. It owns the tombstone ledger that keeps
// locally deleted entities from being resurrected by a pull, the narrow
// remote-store contract, and the engine that arbitrates push-then-pull vs
// pull-only flows.
package reconcile

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
	"github.com/jasonhuangco/morning-lavender-inventory/snapshot"
)

// TombstoneEntry marks one locally-initiated deletion.
type TombstoneEntry struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ledgerKeys maps a tombstone kind to its snapshot keys: the timestamped
// list and the parallel plain id list used by fast filter lookups.
var ledgerKeys = map[inventory.DeletedKind][2]string{
	inventory.DeletedCategory: {snapshot.KeyDeletedCategoriesStamped, snapshot.KeyDeletedCategories},
	inventory.DeletedProduct:  {snapshot.KeyDeletedProductsStamped, snapshot.KeyDeletedProducts},
	inventory.DeletedSession:  {snapshot.KeyDeletedSessionsStamped, snapshot.KeyDeletedSessions},
	inventory.DeletedSupplier: {snapshot.KeyDeletedSuppliersStamped, snapshot.KeyDeletedSuppliers},
}

// Ledger records ids of locally deleted entities with deletion timestamps.
// Writes to durable storage are best-effort: a failed write is logged and
// degrades to "may resurrect on next pull", it never fails the deletion.
type Ledger struct {
	mu      sync.Mutex
	snap    snapshot.Store
	logger  *slog.Logger
	entries map[inventory.DeletedKind][]TombstoneEntry
	ids     map[inventory.DeletedKind]map[string]struct{}

	now func() time.Time
}

// NewLedger creates a ledger backed by snap (may be nil for an in-memory
// only ledger) and restores any persisted entries.
func NewLedger(snap snapshot.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		snap:    snap,
		logger:  logger,
		entries: make(map[inventory.DeletedKind][]TombstoneEntry),
		ids:     make(map[inventory.DeletedKind]map[string]struct{}),
		now:     time.Now,
	}
	for kind := range ledgerKeys {
		l.ids[kind] = make(map[string]struct{})
	}
	l.restore()
	return l
}

func (l *Ledger) restore() {
	if l.snap == nil {
		return
	}
	for kind, keys := range ledgerKeys {
		data, err := l.snap.Get(keys[0])
		if err != nil {
			l.logger.Warn("failed to read tombstone list", "kind", kind, "error", err)
			continue
		}
		if data == nil {
			continue
		}
		var entries []TombstoneEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			l.logger.Warn("failed to decode tombstone list", "kind", kind, "error", err)
			continue
		}
		l.entries[kind] = entries
		for _, e := range entries {
			l.ids[kind][e.ID] = struct{}{}
		}
	}
}

// RecordDeletion appends (id, now) to the kind's list and keeps the plain
// id list in step. Recording an already-tombstoned id is a no-op.
func (l *Ledger) RecordDeletion(kind inventory.DeletedKind, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[kind][id]; ok {
		return
	}
	l.ids[kind][id] = struct{}{}
	l.entries[kind] = append(l.entries[kind], TombstoneEntry{ID: id, DeletedAt: l.now().UTC()})
	l.persistLocked(kind)
}

// IsDeleted reports whether id is tombstoned for kind.
func (l *Ledger) IsDeleted(kind inventory.DeletedKind, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[kind][id]
	return ok
}

// PruneOlderThan drops entries whose deletion predates threshold and
// returns the surviving ids. Pruned ids become eligible for resurrection on
// the next pull; that is the accepted retention trade-off.
func (l *Ledger) PruneOlderThan(kind inventory.DeletedKind, threshold time.Time) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[kind][:0]
	for _, e := range l.entries[kind] {
		if e.DeletedAt.Before(threshold) {
			delete(l.ids[kind], e.ID)
			continue
		}
		kept = append(kept, e)
	}
	l.entries[kind] = kept
	survivors := make([]string, 0, len(kept))
	for _, e := range kept {
		survivors = append(survivors, e.ID)
	}
	l.persistLocked(kind)
	return survivors
}

// PruneAll prunes every kind to entries newer than the retention window.
func (l *Ledger) PruneAll(retention time.Duration) {
	threshold := l.now().UTC().Add(-retention)
	for kind := range ledgerKeys {
		l.PruneOlderThan(kind, threshold)
	}
}

func (l *Ledger) persistLocked(kind inventory.DeletedKind) {
	if l.snap == nil {
		return
	}
	keys := ledgerKeys[kind]
	stamped, err := json.Marshal(l.entries[kind])
	if err == nil {
		err = l.snap.Set(keys[0], stamped)
	}
	if err != nil {
		l.logger.Warn("failed to persist tombstone list", "kind", kind, "error", err)
	}
	ids := make([]string, 0, len(l.entries[kind]))
	for _, e := range l.entries[kind] {
		ids = append(ids, e.ID)
	}
	plain, err := json.Marshal(ids)
	if err == nil {
		err = l.snap.Set(keys[1], plain)
	}
	if err != nil {
		l.logger.Warn("failed to persist tombstone id list", "kind", kind, "error", err)
	}
}
