// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jasonhuangco/morning-lavender-inventory/snapshot"
)

// DeletedKind names one tombstone set.
type DeletedKind string

const (
	DeletedCategory DeletedKind = "category"
	DeletedProduct  DeletedKind = "product"
	DeletedSession  DeletedKind = "session"
	DeletedSupplier DeletedKind = "supplier"
)

// DeletionRecorder receives locally-initiated deletions so a later remote
// pull does not resurrect them. Writes are fire-and-forget.
type DeletionRecorder interface {
	RecordDeletion(kind DeletedKind, id string)
}

// Store is the single in-process source of truth for the application
// dataset. All mutation goes through named methods; each method is atomic
// with respect to readers, mirrors the changed collections into the local
// snapshot store, and records tombstones on delete.
type Store struct {
	mu        sync.Mutex
	state     AppState
	snap      snapshot.Store
	deletions DeletionRecorder
	logger    *slog.Logger
}

// NewStore creates a state store. snap and deletions may be nil, in which
// case mirroring / tombstone recording are skipped.
func NewStore(snap snapshot.Store, deletions DeletionRecorder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{snap: snap, deletions: deletions, logger: logger}
}

// State returns a deep copy of the current aggregate.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneStateLocked()
}

// CurrentSession returns a copy of the active session, or nil.
func (s *Store) CurrentSession() *InventorySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSession.Clone()
}

// HasActiveDraft reports whether an unsubmitted session is being edited.
func (s *Store) HasActiveDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSession.IsDraft()
}

func (s *Store) cloneStateLocked() AppState {
	st := AppState{
		Locations:      make([]Location, len(s.state.Locations)),
		Categories:     make([]Category, len(s.state.Categories)),
		Suppliers:      make([]Supplier, len(s.state.Suppliers)),
		Products:       make([]Product, len(s.state.Products)),
		Sessions:       make([]InventorySession, len(s.state.Sessions)),
		OrderHistory:   make([]OrderHistoryItem, len(s.state.OrderHistory)),
		CurrentSession: s.state.CurrentSession.Clone(),
	}
	copy(st.Locations, s.state.Locations)
	copy(st.Categories, s.state.Categories)
	copy(st.Suppliers, s.state.Suppliers)
	for i, p := range s.state.Products {
		st.Products[i] = cloneProduct(p)
	}
	for i, sess := range s.state.Sessions {
		st.Sessions[i] = *sess.Clone()
	}
	for i, h := range s.state.OrderHistory {
		st.OrderHistory[i] = cloneHistory(h)
	}
	return st
}

func cloneProduct(p Product) Product {
	p.CategoryIDs = append([]string(nil), p.CategoryIDs...)
	p.SupplierIDs = append([]string(nil), p.SupplierIDs...)
	p.Locations = append([]ProductLocation(nil), p.Locations...)
	for i := range p.Locations {
		if p.Locations[i].MinThreshold != nil {
			t := *p.Locations[i].MinThreshold
			p.Locations[i].MinThreshold = &t
		}
	}
	return p
}

func cloneHistory(h OrderHistoryItem) OrderHistoryItem {
	if h.QuantityOrdered != nil {
		q := *h.QuantityOrdered
		h.QuantityOrdered = &q
	}
	h.Suppliers = append([]string(nil), h.Suppliers...)
	h.CategoryIDs = append([]string(nil), h.CategoryIDs...)
	return h
}

// mirror serializes value and writes it under key. Failures are logged and
// otherwise ignored: a lost mirror write only weakens the local cache.
func (s *Store) mirror(key string, value any) {
	if s.snap == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to serialize snapshot entry", "key", key, "error", err)
		return
	}
	if err := s.snap.Set(key, data); err != nil {
		s.logger.Warn("failed to mirror snapshot entry", "key", key, "error", err)
	}
}

func (s *Store) recordDeletion(kind DeletedKind, id string) {
	if s.deletions != nil {
		s.deletions.RecordDeletion(kind, id)
	}
}

// SetLocations replaces the locations collection.
func (s *Store) SetLocations(locations []Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locations = locations
	s.mirror(snapshot.KeyLocations, s.state.Locations)
}

// SetCategories replaces the categories collection.
func (s *Store) SetCategories(categories []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Categories = categories
	s.mirror(snapshot.KeyCategories, s.state.Categories)
}

// SetSuppliers replaces the suppliers collection.
func (s *Store) SetSuppliers(suppliers []Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Suppliers = suppliers
	s.mirror(snapshot.KeySuppliers, s.state.Suppliers)
}

// SetProducts replaces the products collection.
func (s *Store) SetProducts(products []Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Products = products
	s.mirror(snapshot.KeyProducts, s.state.Products)
}

// SetOrderHistory replaces the order history collection.
func (s *Store) SetOrderHistory(history []OrderHistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OrderHistory = history
	s.mirror(snapshot.KeyOrderHistory, s.state.OrderHistory)
}

// SetSessions replaces the sessions collection. If a current session exists
// and the incoming list contains an entry with the same id, the current
// session is replaced by that entry (the synced version wins); otherwise the
// current session is left untouched.
func (s *Store) SetSessions(sessions []InventorySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sessions = sessions
	if cur := s.state.CurrentSession; cur != nil {
		for i := range sessions {
			if sessions[i].ID == cur.ID {
				s.state.CurrentSession = sessions[i].Clone()
				break
			}
		}
	}
	s.mirror(snapshot.KeySessions, s.state.Sessions)
}

// SetCurrentSession makes session the active one (nil clears it). A fresh
// session not yet present in the sessions collection is appended so it shows
// up in listings immediately.
func (s *Store) SetCurrentSession(session *InventorySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session == nil {
		s.state.CurrentSession = nil
		return
	}
	s.state.CurrentSession = session.Clone()
	for i := range s.state.Sessions {
		if s.state.Sessions[i].ID == session.ID {
			return
		}
	}
	s.state.Sessions = append(s.state.Sessions, *session.Clone())
	s.mirror(snapshot.KeySessions, s.state.Sessions)
}

// UpdateSession upserts session into the sessions collection by id and, if
// it is the current session, replaces that view with the same value. Every
// item upsert and submission funnels through here, so the two views stay
// consistent after every single mutation.
func (s *Store) UpdateSession(session InventorySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.state.Sessions {
		if s.state.Sessions[i].ID == session.ID {
			s.state.Sessions[i] = *session.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.state.Sessions = append(s.state.Sessions, *session.Clone())
	}
	if s.state.CurrentSession != nil && s.state.CurrentSession.ID == session.ID {
		s.state.CurrentSession = session.Clone()
	}
	s.mirror(snapshot.KeySessions, s.state.Sessions)
}

// AddLocation appends a location.
func (s *Store) AddLocation(location Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locations = append(s.state.Locations, location)
	s.mirror(snapshot.KeyLocations, s.state.Locations)
}

// UpdateLocation replaces the location with the same id, if present.
func (s *Store) UpdateLocation(location Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Locations {
		if s.state.Locations[i].ID == location.ID {
			s.state.Locations[i] = location
			break
		}
	}
	s.mirror(snapshot.KeyLocations, s.state.Locations)
}

// DeleteLocation removes a location. Locations are hard-deleted: there is no
// tombstone set for them.
func (s *Store) DeleteLocation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locations = deleteByID(s.state.Locations, id, func(l Location) string { return l.ID })
	s.mirror(snapshot.KeyLocations, s.state.Locations)
}

// AddCategory appends a category.
func (s *Store) AddCategory(category Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Categories = append(s.state.Categories, category)
	s.mirror(snapshot.KeyCategories, s.state.Categories)
}

// UpdateCategory replaces the category with the same id, if present.
func (s *Store) UpdateCategory(category Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Categories {
		if s.state.Categories[i].ID == category.ID {
			s.state.Categories[i] = category
			break
		}
	}
	s.mirror(snapshot.KeyCategories, s.state.Categories)
}

// DeleteCategory removes a category, strips its id from every product's
// category list in the same atomic update, and records a tombstone.
func (s *Store) DeleteCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Categories = deleteByID(s.state.Categories, id, func(c Category) string { return c.ID })
	for i := range s.state.Products {
		s.state.Products[i].CategoryIDs = removeString(s.state.Products[i].CategoryIDs, id)
	}
	s.recordDeletion(DeletedCategory, id)
	s.mirror(snapshot.KeyCategories, s.state.Categories)
	s.mirror(snapshot.KeyProducts, s.state.Products)
}

// AddSupplier appends a supplier.
func (s *Store) AddSupplier(supplier Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Suppliers = append(s.state.Suppliers, supplier)
	s.mirror(snapshot.KeySuppliers, s.state.Suppliers)
}

// UpdateSupplier replaces the supplier with the same id, if present.
func (s *Store) UpdateSupplier(supplier Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Suppliers {
		if s.state.Suppliers[i].ID == supplier.ID {
			s.state.Suppliers[i] = supplier
			break
		}
	}
	s.mirror(snapshot.KeySuppliers, s.state.Suppliers)
}

// DeleteSupplier removes a supplier, strips its id from every product's
// supplier list, and records a tombstone.
func (s *Store) DeleteSupplier(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Suppliers = deleteByID(s.state.Suppliers, id, func(sp Supplier) string { return sp.ID })
	for i := range s.state.Products {
		s.state.Products[i].SupplierIDs = removeString(s.state.Products[i].SupplierIDs, id)
	}
	s.recordDeletion(DeletedSupplier, id)
	s.mirror(snapshot.KeySuppliers, s.state.Suppliers)
	s.mirror(snapshot.KeyProducts, s.state.Products)
}

// AddProduct appends a product.
func (s *Store) AddProduct(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Products = append(s.state.Products, product)
	s.mirror(snapshot.KeyProducts, s.state.Products)
}

// UpdateProduct replaces the product with the same id, if present.
func (s *Store) UpdateProduct(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Products {
		if s.state.Products[i].ID == product.ID {
			s.state.Products[i] = product
			break
		}
	}
	s.mirror(snapshot.KeyProducts, s.state.Products)
}

// DeleteProduct removes a product, strips any item referencing it from the
// current session's items, and records a tombstone. Other sessions and the
// in-memory order history are left alone; their cleanup happens at the
// remote gateway boundary.
func (s *Store) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Products = deleteByID(s.state.Products, id, func(p Product) string { return p.ID })
	if cur := s.state.CurrentSession; cur != nil {
		items := cur.Items[:0]
		for _, it := range cur.Items {
			if it.ProductID != id {
				items = append(items, it)
			}
		}
		cur.Items = items
		// keep the sessions-collection view of the same session in step
		for i := range s.state.Sessions {
			if s.state.Sessions[i].ID == cur.ID {
				s.state.Sessions[i] = *cur.Clone()
				break
			}
		}
	}
	s.recordDeletion(DeletedProduct, id)
	s.mirror(snapshot.KeyProducts, s.state.Products)
	s.mirror(snapshot.KeySessions, s.state.Sessions)
}

// DeleteSession removes a session, cascades to every order-history entry
// created from it, and records a tombstone. Deleting the current session
// clears the current-session reference.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sessions = deleteByID(s.state.Sessions, id, func(ss InventorySession) string { return ss.ID })
	history := s.state.OrderHistory[:0]
	for _, h := range s.state.OrderHistory {
		if h.SessionID != id {
			history = append(history, h)
		}
	}
	s.state.OrderHistory = history
	if s.state.CurrentSession != nil && s.state.CurrentSession.ID == id {
		s.state.CurrentSession = nil
	}
	s.recordDeletion(DeletedSession, id)
	s.mirror(snapshot.KeySessions, s.state.Sessions)
	s.mirror(snapshot.KeyOrderHistory, s.state.OrderHistory)
}

// AddOrderHistory appends history entries created by a submission.
func (s *Store) AddOrderHistory(items ...OrderHistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OrderHistory = append(s.state.OrderHistory, items...)
	s.mirror(snapshot.KeyOrderHistory, s.state.OrderHistory)
}

// LoadSnapshot restores all collections from the local snapshot store.
// Missing keys leave the corresponding collection empty; a corrupt entry is
// logged and skipped rather than aborting the warm start.
func (s *Store) LoadSnapshot() error {
	if s.snap == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loadInto(s, snapshot.KeyLocations, &s.state.Locations)
	loadInto(s, snapshot.KeyCategories, &s.state.Categories)
	loadInto(s, snapshot.KeySuppliers, &s.state.Suppliers)
	loadInto(s, snapshot.KeyProducts, &s.state.Products)
	loadInto(s, snapshot.KeySessions, &s.state.Sessions)
	loadInto(s, snapshot.KeyOrderHistory, &s.state.OrderHistory)
	return nil
}

func loadInto[T any](s *Store, key string, target *[]T) {
	data, err := s.snap.Get(key)
	if err != nil {
		s.logger.Warn("failed to read snapshot entry", "key", key, "error", err)
		return
	}
	if data == nil {
		return
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.logger.Warn("failed to decode snapshot entry", "key", key, "error", err)
	}
}

func deleteByID[T any](list []T, id string, idOf func(T) string) []T {
	out := list[:0]
	for _, e := range list {
		if idOf(e) != id {
			out = append(out, e)
		}
	}
	return out
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
