// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationSender delivers a finalized order summary (typically by
// email). It is an external collaborator: the lifecycle only checks that it
// is configured, the caller invokes Send after a successful Submit so a
// delivery failure can be surfaced before the session is marked submitted.
type NotificationSender interface {
	Configured() bool
	Send(ctx context.Context, summary OrderSummary) error
}

// SubmissionResult is everything Submit produces: the summary for the
// notification sender, the history rows to record, and the submitted copy
// of the session. Nothing is persisted until the caller applies it.
type SubmissionResult struct {
	Summary OrderSummary
	History []OrderHistoryItem
	Session InventorySession
}

// Lifecycle governs creation, mutation and submission of counting sessions.
// Every mutation funnels through the state store's UpdateSession so the
// current-session and sessions-collection views never diverge.
type Lifecycle struct {
	store    *Store
	notifier NotificationSender
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewLifecycle creates a session lifecycle manager. notifier may be nil,
// in which case Submit fails with ErrNotificationNotConfigured.
func NewLifecycle(store *Store, notifier NotificationSender, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// StartSession creates a new draft session at the given location and makes
// it the current session.
func (l *Lifecycle) StartSession(locationID, userName string) (*InventorySession, error) {
	if strings.TrimSpace(userName) == "" {
		return nil, ErrBlankUserName
	}
	state := l.store.State()
	known := false
	for _, loc := range state.Locations {
		if loc.ID == locationID {
			known = true
			break
		}
	}
	if !known {
		return nil, ErrUnknownLocation
	}

	session := &InventorySession{
		ID:         l.newID(),
		LocationID: locationID,
		UserName:   strings.TrimSpace(userName),
		StartDate:  l.now().UTC(),
		Items:      []InventoryItem{},
	}
	l.store.SetCurrentSession(session)
	l.logger.Info("started counting session", "session_id", session.ID, "location_id", locationID, "user", session.UserName)
	return session, nil
}

// UpsertItem records a count for a product in a draft session: an existing
// item for the product is replaced in place, a new one is appended at the
// end. For quantity-tracked products the order flag is auto-checked when the
// count falls below the location's minimum threshold; a manually checked
// flag is never cleared. Returns the updated session.
func (l *Lifecycle) UpsertItem(session *InventorySession, productID string, quantity *float64, shouldOrder bool) *InventorySession {
	updated := session.Clone()

	var product *Product
	state := l.store.State()
	for i := range state.Products {
		if state.Products[i].ID == productID {
			product = &state.Products[i]
			break
		}
	}

	order := shouldOrder
	if product != nil {
		order = l.EvaluateAutoOrder(*product, updated.LocationID, quantity, shouldOrder)
	}

	item := InventoryItem{
		ProductID:       productID,
		LocationID:      updated.LocationID,
		CurrentQuantity: quantity,
		ShouldOrder:     order,
	}
	if existing := updated.Item(productID); existing != nil {
		item.LastOrderDate = existing.LastOrderDate
		*existing = item
	} else {
		updated.Items = append(updated.Items, item)
	}

	l.store.UpdateSession(*updated)
	return updated
}

// EvaluateAutoOrder decides the order flag for a quantity-tracked product:
// auto-checked whenever the count is below the location's minimum threshold.
// The rule only ever checks the flag: a count back at or above threshold
// does not auto-uncheck a flag the user set.
func (l *Lifecycle) EvaluateAutoOrder(product Product, locationID string, quantity *float64, manual bool) bool {
	if manual {
		return true
	}
	if !product.RequiresQuantity || quantity == nil {
		return manual
	}
	cfg := product.LocationConfig(locationID)
	if cfg == nil || cfg.MinThreshold == nil {
		return manual
	}
	return *quantity < *cfg.MinThreshold
}

// Submit validates and finalizes a draft session. It builds the order
// summary and the denormalized history rows and returns a submitted copy of
// the session, but neither sends the notification nor persists anything:
// the caller does that (see Finalize), so a delivery failure never leaves a
// session silently marked submitted.
func (l *Lifecycle) Submit(session *InventorySession) (*SubmissionResult, error) {
	if session.IsSubmitted {
		return nil, ErrSessionSubmitted
	}
	ordered := make([]InventoryItem, 0, len(session.Items))
	for _, it := range session.Items {
		if it.ShouldOrder {
			ordered = append(ordered, it)
		}
	}
	if len(ordered) == 0 {
		return nil, ErrNoItemsToOrder
	}
	if l.notifier == nil || !l.notifier.Configured() {
		return nil, ErrNotificationNotConfigured
	}

	state := l.store.State()
	submittedAt := l.now().UTC()

	locationName := session.LocationID
	for _, loc := range state.Locations {
		if loc.ID == session.LocationID {
			locationName = loc.Name
			break
		}
	}

	summary := OrderSummary{
		LocationName: locationName,
		UserName:     session.UserName,
		SubmittedAt:  submittedAt,
	}
	history := make([]OrderHistoryItem, 0, len(ordered))
	for _, it := range ordered {
		productName := it.ProductID
		var supplierNames []string
		var categoryIDs []string
		for _, p := range state.Products {
			if p.ID != it.ProductID {
				continue
			}
			productName = p.Name
			supplierNames = resolveSupplierNames(state.Suppliers, p.SupplierIDs)
			categoryIDs = append([]string(nil), p.CategoryIDs...)
			break
		}

		summary.Lines = append(summary.Lines, OrderSummaryLine{
			ProductName: productName,
			Quantity:    it.CurrentQuantity,
			Suppliers:   supplierNames,
		})
		history = append(history, OrderHistoryItem{
			ProductID:       it.ProductID,
			LocationID:      session.LocationID,
			OrderDate:       submittedAt,
			QuantityOrdered: it.CurrentQuantity,
			SessionID:       session.ID,
			Suppliers:       supplierNames,
			CategoryIDs:     categoryIDs,
		})
	}

	submitted := session.Clone()
	submitted.EndDate = &submittedAt
	submitted.IsSubmitted = true

	return &SubmissionResult{Summary: summary, History: history, Session: *submitted}, nil
}

// Finalize records a successful submission: the submitted session replaces
// the draft, the history rows are appended, and the current-session slot is
// cleared. Call only after the notification was delivered (or the caller
// decided to proceed without it).
func (l *Lifecycle) Finalize(result *SubmissionResult) {
	l.store.UpdateSession(result.Session)
	l.store.AddOrderHistory(result.History...)
	l.store.SetCurrentSession(nil)
	l.logger.Info("submitted counting session",
		"session_id", result.Session.ID, "ordered_items", len(result.History))
}

func resolveSupplierNames(suppliers []Supplier, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name := id
		for _, sp := range suppliers {
			if sp.ID == id {
				name = sp.Name
				break
			}
		}
		names = append(names, name)
	}
	return names
}
