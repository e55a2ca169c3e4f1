// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// Package inventory holds the domain model for the café counting app:
// locations, categories, suppliers, products, counting sessions and order
// history, plus the in-process state store and the session lifecycle.
package inventory

import (
	"time"
)

// Location is a café site where counting sessions happen.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Category groups products for display and filtering.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Supplier is a vendor the café orders from.
type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductLocation describes a product's availability at one location.
// MinThreshold is only meaningful when the owning product tracks quantities.
type ProductLocation struct {
	LocationID   string   `json:"location_id"`
	MinThreshold *float64 `json:"min_threshold,omitempty"`
	IsAvailable  bool     `json:"is_available"`
}

// Product is a countable item. RequiresQuantity discriminates between
// numeric threshold tracking (true) and boolean-only ordering (false).
type Product struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	CategoryIDs      []string          `json:"category_ids"`
	SupplierIDs      []string          `json:"supplier_ids"`
	Locations        []ProductLocation `json:"locations"`
	RequiresQuantity bool              `json:"requires_quantity"`
}

// LocationConfig returns the product's availability entry for a location,
// or nil if the product has no entry there.
func (p *Product) LocationConfig(locationID string) *ProductLocation {
	for i := range p.Locations {
		if p.Locations[i].LocationID == locationID {
			return &p.Locations[i]
		}
	}
	return nil
}

// InventoryItem is one counted line inside a session. At most one item per
// product id exists within a session; upserts replace in place.
type InventoryItem struct {
	ProductID       string     `json:"product_id"`
	LocationID      string     `json:"location_id"`
	CurrentQuantity *float64   `json:"current_quantity,omitempty"`
	ShouldOrder     bool       `json:"should_order"`
	LastOrderDate   *time.Time `json:"last_order_date,omitempty"`
}

// InventorySession is one walk-through count at a location. Draft while
// IsSubmitted is false; submission sets EndDate and IsSubmitted exactly once.
type InventorySession struct {
	ID          string          `json:"id"`
	LocationID  string          `json:"location_id"`
	UserName    string          `json:"user_name"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Items       []InventoryItem `json:"items"`
	IsSubmitted bool            `json:"is_submitted"`
}

// IsDraft reports whether the session is still editable.
func (s *InventorySession) IsDraft() bool {
	return s != nil && !s.IsSubmitted
}

// Item returns the session's item for a product id, or nil.
func (s *InventorySession) Item(productID string) *InventoryItem {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return &s.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the session.
func (s *InventorySession) Clone() *InventorySession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.EndDate != nil {
		end := *s.EndDate
		cp.EndDate = &end
	}
	cp.Items = make([]InventoryItem, len(s.Items))
	for i, it := range s.Items {
		cp.Items[i] = cloneItem(it)
	}
	return &cp
}

func cloneItem(it InventoryItem) InventoryItem {
	if it.CurrentQuantity != nil {
		q := *it.CurrentQuantity
		it.CurrentQuantity = &q
	}
	if it.LastOrderDate != nil {
		d := *it.LastOrderDate
		it.LastOrderDate = &d
	}
	return it
}

// OrderHistoryItem is an immutable record of one ordered line, created in
// bulk at session submission. Supplier names and category ids are
// denormalized at that moment and never retroactively updated.
type OrderHistoryItem struct {
	ProductID       string    `json:"product_id"`
	LocationID      string    `json:"location_id"`
	OrderDate       time.Time `json:"order_date"`
	QuantityOrdered *float64  `json:"quantity_ordered,omitempty"`
	SessionID       string    `json:"session_id"`
	Suppliers       []string  `json:"suppliers"`
	CategoryIDs     []string  `json:"category_ids"`
}

// OrderSummaryLine is one ordered product in a submission summary.
type OrderSummaryLine struct {
	ProductName string   `json:"product_name"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Suppliers   []string `json:"suppliers"`
}

// OrderSummary is the finalized payload handed to the notification sender.
type OrderSummary struct {
	LocationName string             `json:"location_name"`
	UserName     string             `json:"user_name"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	Lines        []OrderSummaryLine `json:"lines"`
}

// AppState is the root aggregate every consumer reads from. CurrentSession,
// when set and also present in Sessions, is kept value-identical with the
// Sessions entry by the store's mutations.
type AppState struct {
	Locations      []Location         `json:"locations"`
	Categories     []Category         `json:"categories"`
	Suppliers      []Supplier         `json:"suppliers"`
	Products       []Product          `json:"products"`
	Sessions       []InventorySession `json:"sessions"`
	OrderHistory   []OrderHistoryItem `json:"order_history"`
	CurrentSession *InventorySession  `json:"current_session,omitempty"`
}
