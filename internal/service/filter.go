package service

import (
	"strings"
	"sync"

	"lifelog/internal/domain/models"
	"lifelog/internal/state"
)

// FilterEngine derives the visible card set as a pure conjunction of the
// four predicates. Results are memoized on (view revision, filter): while
// neither input changes, Apply returns the identical slice, so unrelated
// re-evaluations cost nothing. At this data scale no persistent index is
// kept.
type FilterEngine struct {
	view *state.View

	mu         sync.Mutex
	memoRev    uint64
	memoKey    filterKey
	memoResult []models.Card
	memoValid  bool
}

// filterKey is CardFilter flattened into a comparable value.
type filterKey struct {
	search      string
	categoryID  string
	hasCategory bool
	cardType    string
	status      string
}

func NewFilterEngine(view *state.View) *FilterEngine {
	return &FilterEngine{view: view}
}

// Apply evaluates the filter against the current view.
func (e *FilterEngine) Apply(filter models.CardFilter) []models.Card {
	key := keyOf(filter)
	rev := e.view.Revision()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.memoValid && e.memoRev == rev && e.memoKey == key {
		return e.memoResult
	}

	result := e.evaluate(filter)

	e.memoRev = rev
	e.memoKey = key
	e.memoResult = result
	e.memoValid = true
	return result
}

func (e *FilterEngine) evaluate(filter models.CardFilter) []models.Card {
	// Category selection is subtree-inclusive: the selected id plus all of
	// its descendants.
	var allowed map[string]bool
	if filter.CategoryID != nil {
		allowed = map[string]bool{*filter.CategoryID: true}
		for _, id := range e.view.DescendantsOf(*filter.CategoryID) {
			allowed[id] = true
		}
	}

	search := strings.ToLower(filter.Search)

	result := make([]models.Card, 0)
	for _, card := range e.view.Cards() {
		if !matchSearch(&card, search) {
			continue
		}
		if allowed != nil && (card.CategoryID == nil || !allowed[*card.CategoryID]) {
			continue
		}
		if !matchType(&card, filter.Type) {
			continue
		}
		if !matchStatus(&card, filter.Status) {
			continue
		}
		result = append(result, card)
	}
	return result
}

// matchSearch is a case-insensitive substring match against title OR
// content. A card without content can still match on its title.
func matchSearch(card *models.Card, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(card.Title), search) {
		return true
	}
	content := card.Content()
	return content != "" && strings.Contains(strings.ToLower(content), search)
}

func matchType(card *models.Card, typeFilter string) bool {
	if typeFilter == "" || typeFilter == models.FilterAll {
		return true
	}
	return string(card.Type) == typeFilter
}

func matchStatus(card *models.Card, status string) bool {
	switch status {
	case models.StatusCompleted:
		return card.IsCompleted
	case models.StatusPending:
		return !card.IsCompleted
	default:
		return true
	}
}

func keyOf(filter models.CardFilter) filterKey {
	key := filterKey{
		search:   filter.Search,
		cardType: filter.Type,
		status:   filter.Status,
	}
	if filter.CategoryID != nil {
		key.categoryID = *filter.CategoryID
		key.hasCategory = true
	}
	return key
}
