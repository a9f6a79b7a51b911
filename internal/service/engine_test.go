package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"lifelog/internal/cardspec"
	"lifelog/internal/remote"
	"lifelog/internal/remote/memory"
	"lifelog/internal/state"
)

// testEngine wires a full engine over the in-memory store. The memory store
// delivers snapshots synchronously, so a write made through a service is
// visible in the view as soon as the call returns.
type testEngine struct {
	store      *countingStore
	view       *state.View
	reconciler *Reconciler
	tree       *CategoryTree
	catalog    *CardCatalog
	filter     *FilterEngine
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	store := newCountingStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry, err := cardspec.NewRegistry()
	if err != nil {
		t.Fatalf("load card registry: %v", err)
	}

	view := state.NewView()
	reconciler := NewReconciler(store, view, logger)
	if err := reconciler.Start(context.Background()); err != nil {
		t.Fatalf("start reconciler: %v", err)
	}
	t.Cleanup(reconciler.Stop)

	return &testEngine{
		store:      store,
		view:       view,
		reconciler: reconciler,
		tree:       NewCategoryTree(store, view, logger),
		catalog:    NewCardCatalog(store, view, registry, logger),
		filter:     NewFilterEngine(view),
	}
}

// mustCreateCategory creates a category and returns its id.
func (e *testEngine) mustCreateCategory(t *testing.T, name string, parentID *string) string {
	t.Helper()

	var doc map[string]any
	if parentID != nil {
		doc = map[string]any{"name": name, "parentId": *parentID}
	} else {
		doc = map[string]any{"name": name, "parentId": nil}
	}
	id, err := e.store.Create(context.Background(), remote.CollectionCategories, doc)
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return id
}

// firstCardID returns the id of the only card in the view.
func (e *testEngine) firstCardID(t *testing.T) string {
	t.Helper()
	cards := e.view.Cards()
	if len(cards) != 1 {
		t.Fatalf("expected exactly one card, got %d", len(cards))
	}
	return cards[0].ID
}

// countingStore wraps the memory store and counts remote calls, so tests
// can assert that validation failures never reach the store.
type countingStore struct {
	*memory.Store
	writes atomic.Int64
	reads  atomic.Int64
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New()}
}

func (s *countingStore) Create(ctx context.Context, coll string, data map[string]any) (string, error) {
	s.writes.Add(1)
	return s.Store.Create(ctx, coll, data)
}

func (s *countingStore) Set(ctx context.Context, coll, id string, data map[string]any) error {
	s.writes.Add(1)
	return s.Store.Set(ctx, coll, id, data)
}

func (s *countingStore) Update(ctx context.Context, coll, id string, patch map[string]any) error {
	s.writes.Add(1)
	return s.Store.Update(ctx, coll, id, patch)
}

func (s *countingStore) Delete(ctx context.Context, coll, id string) error {
	s.writes.Add(1)
	return s.Store.Delete(ctx, coll, id)
}

func (s *countingStore) Get(ctx context.Context, coll, id string) (*remote.Document, error) {
	s.reads.Add(1)
	return s.Store.Get(ctx, coll, id)
}

func (s *countingStore) remoteCalls() int64 {
	return s.writes.Load() + s.reads.Load()
}

// setClock pins the store's timestamp source.
func (s *countingStore) setClock(t time.Time) {
	s.Store.Now = func() time.Time { return t }
}
