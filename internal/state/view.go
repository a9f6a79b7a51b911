// Package state holds the local materialized view of the session's remote
// collections. The reconciler is its only writer; every other component
// reads. Collections are replaced wholesale per snapshot, never edited in
// place, so handed-out slices stay valid after a replacement.
package state

import (
	"sync"

	"lifelog/internal/domain/models"
)

// rootKey indexes root-level categories (nil ParentID).
const rootKey = ""

// View is the snapshot-consistent read model: the two collections in their
// locally applied order, a parent-to-children index rebuilt once per
// category snapshot, and a revision that increments on every replacement
// (the filter memo keys off it).
type View struct {
	mu         sync.RWMutex
	categories []models.Category
	cards      []models.Card
	children   map[string][]models.Category
	catByID    map[string]models.Category
	cardByID   map[string]models.Card
	revision   uint64
}

func NewView() *View {
	return &View{
		children: make(map[string][]models.Category),
		catByID:  make(map[string]models.Category),
		cardByID: make(map[string]models.Card),
	}
}

// ReplaceCategories installs a category snapshot, already in render order,
// and rebuilds the child index. The index makes ChildrenOf and
// DescendantsOf lookups instead of collection scans.
func (v *View) ReplaceCategories(categories []models.Category) {
	children := make(map[string][]models.Category)
	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		key := rootKey
		if c.ParentID != nil {
			key = *c.ParentID
		}
		children[key] = append(children[key], c)
		byID[c.ID] = c
	}

	v.mu.Lock()
	v.categories = categories
	v.children = children
	v.catByID = byID
	v.revision++
	v.mu.Unlock()
}

// ReplaceCards installs a card snapshot, already in render order.
func (v *View) ReplaceCards(cards []models.Card) {
	byID := make(map[string]models.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	v.mu.Lock()
	v.cards = cards
	v.cardByID = byID
	v.revision++
	v.mu.Unlock()
}

// Categories returns the current category snapshot. Callers must not
// mutate it.
func (v *View) Categories() []models.Category {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.categories
}

// Cards returns the current card snapshot. Callers must not mutate it.
func (v *View) Cards() []models.Card {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cards
}

func (v *View) CategoryByID(id string) (models.Category, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.catByID[id]
	return c, ok
}

func (v *View) CardByID(id string) (models.Card, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.cardByID[id]
	return c, ok
}

// ChildrenOf returns the direct children of a category, in snapshot order.
// A nil parent selects the roots.
func (v *View) ChildrenOf(parentID *string) []models.Category {
	key := rootKey
	if parentID != nil {
		key = *parentID
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.children[key]
}

// DescendantsOf returns the ids of every category transitively below id, in
// depth-first order. The result never contains id itself. The parent graph
// is acyclic by construction (no reparent operation exists), so the walk
// terminates in O(n).
func (v *View) DescendantsOf(id string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []string
	stack := []string{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range v.children[current] {
			out = append(out, child.ID)
			stack = append(stack, child.ID)
		}
	}
	return out
}

// Revision increments whenever either collection is replaced.
func (v *View) Revision() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.revision
}
