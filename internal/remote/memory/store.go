// Package memory implements remote.Store entirely in process. It backs the
// test suites and the STORE_BACKEND=memory development mode; the snapshot
// contract is identical to the postgres backend, only synchronous.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifelog/internal/domain"
	"lifelog/internal/remote"
)

type collection map[string]remote.Document

// Store is a mutex-guarded map of collections with synchronous snapshot
// fan-out: every mutation delivers a fresh complete snapshot to all
// subscribers of the touched collection before the mutating call returns.
type Store struct {
	mu          sync.Mutex
	collections map[string]collection
	subs        map[string]map[int]remote.SnapshotFunc
	nextSub     int
	closed      bool

	// Now is the timestamp source for created documents. Tests override it
	// to get deterministic ordering.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		collections: make(map[string]collection),
		subs:        make(map[string]map[int]remote.SnapshotFunc),
		Now:         time.Now,
	}
}

func (s *Store) Create(ctx context.Context, coll string, data map[string]any) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("create %s: store closed: %w", coll, domain.ErrRemote)
	}
	id := uuid.NewString()
	s.put(coll, remote.Document{ID: id, Data: copyData(data), CreatedAt: s.Now()})
	fns, docs := s.snapshotLocked(coll)
	s.mu.Unlock()

	deliver(fns, docs)
	return id, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, data map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("set %s/%s: store closed: %w", coll, id, domain.ErrRemote)
	}
	doc := remote.Document{ID: id, Data: copyData(data), CreatedAt: s.Now()}
	if existing, ok := s.collections[coll][id]; ok {
		doc.CreatedAt = existing.CreatedAt
	}
	s.put(coll, doc)
	fns, docs := s.snapshotLocked(coll)
	s.mu.Unlock()

	deliver(fns, docs)
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, patch map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: store closed: %w", coll, id, domain.ErrRemote)
	}
	existing, ok := s.collections[coll][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", coll, id, domain.ErrNotFound)
	}
	merged := copyData(existing.Data)
	for k, v := range patch {
		merged[k] = v
	}
	existing.Data = merged
	s.put(coll, existing)
	fns, docs := s.snapshotLocked(coll)
	s.mu.Unlock()

	deliver(fns, docs)
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("delete %s/%s: store closed: %w", coll, id, domain.ErrRemote)
	}
	if _, ok := s.collections[coll][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %s/%s: %w", coll, id, domain.ErrNotFound)
	}
	delete(s.collections[coll], id)
	fns, docs := s.snapshotLocked(coll)
	s.mu.Unlock()

	deliver(fns, docs)
	return nil
}

func (s *Store) Get(ctx context.Context, coll, id string) (*remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[coll][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", coll, id, domain.ErrNotFound)
	}
	out := doc
	out.Data = copyData(doc.Data)
	return &out, nil
}

func (s *Store) Subscribe(ctx context.Context, coll string, fn remote.SnapshotFunc) (remote.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed: %w", coll, domain.ErrRemote)
	}
	if s.subs[coll] == nil {
		s.subs[coll] = make(map[int]remote.SnapshotFunc)
	}
	key := s.nextSub
	s.nextSub++
	s.subs[coll][key] = fn
	_, docs := s.snapshotLocked(coll)
	s.mu.Unlock()

	// Initial snapshot, before any change event.
	fn(docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[coll], key)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[string]map[int]remote.SnapshotFunc)
	s.mu.Unlock()
}

func (s *Store) put(coll string, doc remote.Document) {
	if s.collections[coll] == nil {
		s.collections[coll] = make(collection)
	}
	s.collections[coll][doc.ID] = doc
}

// snapshotLocked copies the current subscriber list and collection state.
// Delivery happens outside the lock so a callback may call back into the
// store. Map iteration order is deliberately kept: the store guarantees no
// ordering, the reconciler sorts.
func (s *Store) snapshotLocked(coll string) ([]remote.SnapshotFunc, []remote.Document) {
	fns := make([]remote.SnapshotFunc, 0, len(s.subs[coll]))
	for _, fn := range s.subs[coll] {
		fns = append(fns, fn)
	}
	docs := make([]remote.Document, 0, len(s.collections[coll]))
	for _, doc := range s.collections[coll] {
		doc.Data = copyData(doc.Data)
		docs = append(docs, doc)
	}
	return fns, docs
}

func deliver(fns []remote.SnapshotFunc, docs []remote.Document) {
	for _, fn := range fns {
		fn(docs)
	}
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
