package client

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/search"
)

// Mirror keeps a local copy of the catalog so searches need no round trip.
// Until the copy is loaded, searches go to the server.
type Mirror struct {
	client *Client
	mode   search.Mode
	limit  int
	group  singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	catalog []model.Ingredient
	byID    map[int64]model.Ingredient
}

// NewMirror returns an empty mirror. mode selects the result cap from
// limits for local ranking and is sent with server searches, so both paths
// cap alike when limits match the server configuration.
func NewMirror(c *Client, mode search.Mode, limits search.Limits) *Mirror {
	return &Mirror{client: c, mode: mode, limit: limits.For(mode)}
}

func (m *Mirror) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Preload downloads the catalog once. Concurrent callers share a single
// download; after a failure the next call tries again.
func (m *Mirror) Preload(ctx context.Context) error {
	if m.Loaded() {
		return nil
	}
	_, err, _ := m.group.Do("catalog", func() (any, error) {
		if m.Loaded() {
			return nil, nil
		}
		all, err := m.client.AllIngredients(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]model.Ingredient, len(all))
		for _, ing := range all {
			byID[ing.ID] = ing
		}
		m.mu.Lock()
		m.catalog, m.byID, m.loaded = all, byID, true
		m.mu.Unlock()
		return nil, nil
	})
	return err
}

// Search ranks the local catalog when loaded and asks the server
// otherwise. Both paths rank identically.
func (m *Mirror) Search(ctx context.Context, q string) ([]model.Ingredient, error) {
	if len(search.Terms(q)) == 0 {
		return []model.Ingredient{}, nil
	}
	m.mu.RLock()
	loaded, catalog := m.loaded, m.catalog
	m.mu.RUnlock()
	if loaded {
		return search.Rank(q, catalog, func(ing model.Ingredient) string { return ing.Name }, m.limit), nil
	}
	return m.client.SearchIngredients(ctx, q, m.mode)
}

// Get looks an ingredient up by id without ranking.
func (m *Mirror) Get(ctx context.Context, id int64) (*model.Ingredient, error) {
	m.mu.RLock()
	ing, ok := m.byID[id]
	m.mu.RUnlock()
	if ok {
		return &ing, nil
	}
	return m.client.Ingredient(ctx, id)
}
