package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"lifelog/internal/domain/models"
	"lifelog/internal/remote"
	"lifelog/internal/state"
)

// Reconciler mirrors the two remote collections into the local view. It is
// the single writer of local state: reads anywhere else in the engine only
// ever observe fully applied snapshots. Each snapshot wholesale-replaces its
// collection; the two streams govern disjoint collections, so no cross-
// stream merge exists.
type Reconciler struct {
	store  remote.Store
	view   *state.View
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []remote.Unsubscribe
}

func NewReconciler(store remote.Store, view *state.View, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		view:   view,
		logger: logger,
	}
}

// Start opens the two snapshot subscriptions. Calling Start on a running
// reconciler is an error; Stop first.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.unsubs) > 0 {
		return fmt.Errorf("reconciler already started")
	}

	unsubCategories, err := r.store.Subscribe(ctx, remote.CollectionCategories, r.applyCategories)
	if err != nil {
		return fmt.Errorf("subscribe categories: %w", err)
	}

	unsubCards, err := r.store.Subscribe(ctx, remote.CollectionCards, r.applyCards)
	if err != nil {
		unsubCategories()
		return fmt.Errorf("subscribe cards: %w", err)
	}

	r.unsubs = []remote.Unsubscribe{unsubCategories, unsubCards}
	r.logger.Info("reconciler started")
	return nil
}

// Stop tears down both subscriptions. The view keeps its last applied
// snapshots; no further snapshot is applied after Stop returns.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if len(unsubs) > 0 {
		r.logger.Info("reconciler stopped")
	}
}

// applyCategories decodes a category snapshot, orders it name-ascending
// (the remote gives no ordering guarantee), and replaces the collection.
func (r *Reconciler) applyCategories(docs []remote.Document) {
	categories := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, models.CategoryFromDoc(doc.ID, doc.Data, doc.CreatedAt))
	}

	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Name != categories[j].Name {
			return categories[i].Name < categories[j].Name
		}
		return categories[i].ID < categories[j].ID
	})

	r.view.ReplaceCategories(categories)
	r.logger.Debug("categories snapshot applied", "count", len(categories))
}

// applyCards decodes a card snapshot and orders it newest-first; cards
// without a timestamp sort as oldest. Documents that fail to decode are
// skipped, the rest of the snapshot still applies.
func (r *Reconciler) applyCards(docs []remote.Document) {
	cards := make([]models.Card, 0, len(docs))
	for _, doc := range docs {
		card, err := models.CardFromDoc(doc.ID, doc.Data, doc.CreatedAt)
		if err != nil {
			r.logger.Warn("skipping undecodable card", "id", doc.ID, "error", err)
			continue
		}
		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool {
		a, b := cards[i].CreatedAt, cards[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return cards[i].ID < cards[j].ID
	})

	r.view.ReplaceCards(cards)
	r.logger.Debug("cards snapshot applied", "count", len(cards))
}
