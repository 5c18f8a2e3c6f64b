// Package catalog pulls menu and category data from the remote system
// and reconciles it into the local store without clobbering newer local
// edits or wiping a populated catalog on a transient empty response.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/store"
	"github.com/counterline/counterline/internal/tenant"
)

// Remote fetch actions.
const (
	ActionMenu       = "menu"
	ActionCategories = "categories"
)

// Status reports which halves of a sync landed. Partial success keeps
// the half that worked; the caller still sees the error for the other.
type Status uint8

const (
	MenuSynced Status = 1 << iota
	CategoriesSynced
)

// Options tune a single sync run.
type Options struct {
	// Force bypasses the in-memory snapshot cache.
	Force bool
	// AllowEmpty lets an empty remote set replace a populated table.
	// Used for deliberate resets only.
	AllowEmpty bool
}

// Result summarizes a sync run.
type Result struct {
	Status           Status
	MenuCount        int
	CategoryCount    int
	UnitsApplied     int
	InventoryApplied int
}

// rowFetcher abstracts the remote read call so tests can script it.
type rowFetcher func(ctx context.Context, action string) ([]json.RawMessage, error)

// Engine reconciles remote catalog state into the local store.
type Engine struct {
	DB     *sql.DB
	Logger *zap.Logger

	fetch rowFetcher

	// CacheMenu keeps menu responses for CacheTTL between syncs;
	// categories default to always-fresh. Both are knobs, not policy
	// carved into the code.
	CacheMenu       bool
	CacheCategories bool
	CacheTTL        time.Duration

	mu        sync.Mutex
	menuCache *snapshot
	catCache  *snapshot
}

type snapshot struct {
	rows      []json.RawMessage
	fetchedAt time.Time
}

// NewEngine wires a sync engine over the local store and remote fetch.
func NewEngine(db *sql.DB, fetch func(ctx context.Context, action string) ([]json.RawMessage, error), logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		DB:        db,
		Logger:    logger,
		fetch:     fetch,
		CacheMenu: true,
		CacheTTL:  5 * time.Minute,
	}
}

// Sync replaces local catalog state with the remote view for the given
// tenant. An unbootstrapped tenant gets its menu and category tables
// cleared and zero counts back, regardless of remote content.
func (e *Engine) Sync(ctx context.Context, tctx tenant.Context, opts Options) (Result, error) {
	var result Result

	if !tctx.Bootstrapped() {
		e.Logger.Info("tenant not bootstrapped, clearing catalog", zap.String("tenant", tctx.ID))
		if _, err := store.ReplaceMenuItems(ctx, e.DB, nil, true); err != nil {
			return result, err
		}
		if _, err := store.ReplaceCategories(ctx, e.DB, nil, true); err != nil {
			return result, err
		}
		result.Status = MenuSynced | CategoriesSynced
		return result, nil
	}

	// Fetch both resources concurrently; each half settles on its own.
	var (
		wg                sync.WaitGroup
		menuRows, catRows []json.RawMessage
		menuErr, catErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		menuRows, menuErr = e.fetchCached(ctx, ActionMenu, e.CacheMenu, opts.Force, &e.menuCache)
	}()
	go func() {
		defer wg.Done()
		catRows, catErr = e.fetchCached(ctx, ActionCategories, e.CacheCategories, opts.Force, &e.catCache)
	}()
	wg.Wait()

	if menuErr == nil {
		n, err := e.applyMenu(ctx, menuRows, opts.AllowEmpty, &result)
		if err != nil {
			menuErr = err
		} else {
			result.MenuCount = n
			result.Status |= MenuSynced
		}
	}

	if catErr == nil {
		cats := make([]model.Category, 0, len(catRows))
		for _, raw := range catRows {
			if c, ok := NormalizeCategoryRow(raw); ok {
				cats = append(cats, c)
			}
		}
		n, err := store.ReplaceCategories(ctx, e.DB, cats, opts.AllowEmpty)
		if err != nil {
			catErr = err
		} else {
			result.CategoryCount = n
			result.Status |= CategoriesSynced
		}
	}

	return result, combineErrors(menuErr, catErr)
}

// applyMenu normalizes and replaces menu rows, then recomputes the
// derived units and inventory tables from them.
func (e *Engine) applyMenu(ctx context.Context, rows []json.RawMessage, allowEmpty bool, result *Result) (int, error) {
	items := make([]model.MenuItem, 0, len(rows))
	for _, raw := range rows {
		if it, ok := NormalizeMenuRow(raw); ok {
			items = append(items, it)
		}
	}

	n, err := store.ReplaceMenuItems(ctx, e.DB, items, allowEmpty)
	if err != nil {
		return 0, err
	}
	if n == 0 && !allowEmpty {
		// Empty incoming set, guard kept the existing catalog; the
		// derived tables stay as they are too.
		return 0, nil
	}

	applied, err := store.MergeUnits(ctx, e.DB, DeriveUnits(items))
	if err != nil {
		return n, err
	}
	result.UnitsApplied = applied

	applied, err = store.MergeInventoryItems(ctx, e.DB, DeriveInventory(items))
	if err != nil {
		return n, err
	}
	result.InventoryApplied = applied

	return n, nil
}

// fetchCached serves rows from the snapshot cache when the action is
// cache-eligible and the snapshot is fresh; otherwise it fetches.
func (e *Engine) fetchCached(ctx context.Context, action string, cacheable, force bool, slot **snapshot) ([]json.RawMessage, error) {
	if cacheable && !force {
		e.mu.Lock()
		cached := *slot
		e.mu.Unlock()
		if cached != nil && time.Since(cached.fetchedAt) < e.CacheTTL {
			return cached.rows, nil
		}
	}

	rows, err := e.fetch(ctx, action)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", action, err)
	}

	if cacheable {
		e.mu.Lock()
		*slot = &snapshot{rows: rows, fetchedAt: time.Now()}
		e.mu.Unlock()
	}
	return rows, nil
}

func combineErrors(menuErr, catErr error) error {
	switch {
	case menuErr != nil && catErr != nil:
		return fmt.Errorf("menu: %v; categories: %w", menuErr, catErr)
	case menuErr != nil:
		return menuErr
	case catErr != nil:
		return catErr
	default:
		return nil
	}
}
