// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
)

// Config holds engine tuning knobs.
type Config struct {
	SyncInterval       time.Duration // periodic trigger cadence
	TombstoneRetention time.Duration // tombstones older than this are pruned
}

// DefaultConfig returns the engine defaults: a 15 minute auto-sync cadence
// and a 30 day tombstone retention window.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:       15 * time.Minute,
		TombstoneRetention: 30 * 24 * time.Hour,
	}
}

// SyncError reports a reconciliation failure with the phase it occurred in,
// so push failures (logged, pull proceeded) are distinguishable from pull
// failures (nothing was published).
type SyncError struct {
	Phase    string // "push" or "pull"
	Failures int    // failed upserts during a push phase
	Err      error
}

func (e *SyncError) Error() string {
	if e.Phase == "push" {
		return fmt.Sprintf("sync push phase: %d upsert(s) failed", e.Failures)
	}
	return fmt.Sprintf("sync %s phase: %v", e.Phase, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Engine merges the local dataset held by the state store with the remote
// copy behind the RemoteStore contract. It is the single place where the
// two copies become one consistent view.
type Engine struct {
	store  *inventory.Store
	remote RemoteStore
	ledger *Ledger
	config *Config
	logger *slog.Logger

	reconcileMu sync.Mutex // one reconciliation at a time
	paused      int32      // atomic pause switch for the background loop

	stateMu    sync.Mutex
	lastSyncAt time.Time
	lastErr    error
}

// NewEngine creates a reconciliation engine. config may be nil for defaults.
func NewEngine(store *inventory.Store, remote RemoteStore, ledger *Ledger, config *Config, logger *slog.Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		remote: remote,
		ledger: ledger,
		config: config,
		logger: logger,
	}
}

// Pause suspends background sync triggers (explicit Reconcile still works).
func (e *Engine) Pause() { atomic.StoreInt32(&e.paused, 1) }

// Resume resumes background sync triggers.
func (e *Engine) Resume() { atomic.StoreInt32(&e.paused, 0) }

// LastSync returns the completion time of the last successful reconcile and
// the error recorded by the most recent attempt (nil after a success).
func (e *Engine) LastSync() (time.Time, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastSyncAt, e.lastErr
}

func (e *Engine) setResult(err error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.lastErr = err
	if err == nil {
		e.lastSyncAt = time.Now().UTC()
	}
}

// remoteData is one complete fetch of every remote collection. The whole
// fetch phase resolves before any filtering or store update begins, so a
// torn merge is never published.
type remoteData struct {
	locations  []inventory.Location
	categories []inventory.Category
	suppliers  []inventory.Supplier
	products   []inventory.Product
	sessions   []inventory.InventorySession
	history    []inventory.OrderHistoryItem
}

// Reconcile merges local and remote state. With pullFirst the engine only
// downloads ("get latest changes first"); otherwise it pushes every local
// entity to the remote store before pulling, so local changes are never
// lost to the download. In both modes the pulled Category/Product/Session/
// Supplier collections are filtered through the tombstone ledger, the
// current draft session is preserved when the remote side does not know it,
// and the merged result is republished into the state store and mirrored to
// the local snapshot.
func (e *Engine) Reconcile(ctx context.Context, pullFirst bool) error {
	e.reconcileMu.Lock()
	defer e.reconcileMu.Unlock()

	pushFailures := 0
	if !pullFirst {
		pushFailures = e.pushLocal(ctx)
	}

	remote, err := e.fetchAll(ctx)
	if err != nil {
		err = &SyncError{Phase: "pull", Err: err}
		e.setResult(err)
		return err
	}

	e.publish(remote)

	if !pullFirst && pushFailures == 0 {
		// Retention sweep only after a fully successful push-then-pull;
		// a partial sync must never shrink the ledger.
		e.ledger.PruneAll(e.config.TombstoneRetention)
	}

	if pushFailures > 0 {
		err := &SyncError{Phase: "push", Failures: pushFailures}
		e.setResult(err)
		return err
	}
	e.setResult(nil)
	return nil
}

// pushLocal uploads every local entity one at a time. Individual failures
// are logged and counted, never aborting the remaining uploads or the pull
// phase that follows. The local collections are snapshotted once at the
// start: a mutation landing mid-push rides the next cycle.
func (e *Engine) pushLocal(ctx context.Context) int {
	state := e.store.State()
	failures := 0
	fail := func(entity, id string, err error) {
		failures++
		e.logger.Warn("push upsert failed", "entity", entity, "id", id, "error", err)
	}

	for _, l := range state.Locations {
		if err := e.remote.UpsertLocation(ctx, l); err != nil {
			fail("location", l.ID, err)
		}
	}
	for _, c := range state.Categories {
		if err := e.remote.UpsertCategory(ctx, c); err != nil {
			fail("category", c.ID, err)
		}
	}
	for _, s := range state.Suppliers {
		if err := e.remote.UpsertSupplier(ctx, s); err != nil {
			fail("supplier", s.ID, err)
		}
	}
	for _, p := range state.Products {
		if err := e.remote.UpsertProduct(ctx, p); err != nil {
			fail("product", p.ID, err)
		}
	}
	for _, s := range state.Sessions {
		if err := e.remote.UpsertSession(ctx, s); err != nil {
			fail("session", s.ID, err)
		}
	}
	if len(state.OrderHistory) > 0 {
		if err := e.remote.InsertOrderHistory(ctx, state.OrderHistory); err != nil {
			failures++
			e.logger.Warn("push order history failed", "rows", len(state.OrderHistory), "error", err)
		}
	}
	return failures
}

// fetchAll downloads all six collections concurrently and waits for every
// request before returning. No cross-collection ordering is assumed.
func (e *Engine) fetchAll(ctx context.Context) (*remoteData, error) {
	var data remoteData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.locations, err = e.remote.FetchLocations(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.categories, err = e.remote.FetchCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.suppliers, err = e.remote.FetchSuppliers(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.products, err = e.remote.FetchProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.sessions, err = e.remote.FetchSessions(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.history, err = e.remote.FetchOrderHistory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

// publish filters the pulled collections through the tombstone ledger and
// replaces the state store's collections with the result. The store's
// SetSessions keeps an unknown local draft untouched and adopts the remote
// version of a session it already knows.
func (e *Engine) publish(remote *remoteData) {
	categories := remote.categories[:0]
	for _, c := range remote.categories {
		if !e.ledger.IsDeleted(inventory.DeletedCategory, c.ID) {
			categories = append(categories, c)
		}
	}
	suppliers := remote.suppliers[:0]
	for _, s := range remote.suppliers {
		if !e.ledger.IsDeleted(inventory.DeletedSupplier, s.ID) {
			suppliers = append(suppliers, s)
		}
	}
	products := remote.products[:0]
	for _, p := range remote.products {
		if !e.ledger.IsDeleted(inventory.DeletedProduct, p.ID) {
			products = append(products, p)
		}
	}
	sessions := remote.sessions[:0]
	for _, s := range remote.sessions {
		if !e.ledger.IsDeleted(inventory.DeletedSession, s.ID) {
			sessions = append(sessions, s)
		}
	}

	e.store.SetLocations(remote.locations)
	e.store.SetCategories(categories)
	e.store.SetSuppliers(suppliers)
	e.store.SetProducts(products)
	e.store.SetSessions(sessions)
	e.store.SetOrderHistory(remote.history)
}

// AutoSync is the periodic/foreground trigger path. It silently no-ops when
// a draft session is being edited (counting must never race a sync) or the
// engine is paused, and swallows errors after recording them; only explicit
// user-invoked Reconcile calls surface failures to the caller.
func (e *Engine) AutoSync(ctx context.Context) {
	if atomic.LoadInt32(&e.paused) == 1 {
		return
	}
	if e.store.HasActiveDraft() {
		return
	}
	if err := e.Reconcile(ctx, false); err != nil {
		e.logger.Warn("background sync failed", "error", err)
	}
}

// Foreground is invoked when the application regains focus.
func (e *Engine) Foreground(ctx context.Context) {
	e.AutoSync(ctx)
}

// Run drives AutoSync on the configured interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.AutoSync(ctx)
		}
	}
}
