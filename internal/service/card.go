package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lifelog/internal/cardspec"
	"lifelog/internal/domain"
	"lifelog/internal/domain/models"
	"lifelog/internal/remote"
	"lifelog/internal/state"
)

// CardCatalog exposes the polymorphic card operations. Like the category
// tree it reads the local view and writes fire-and-forget against the
// remote store; a write is observable locally only after its snapshot
// round-trips.
type CardCatalog struct {
	store  remote.Store
	view   *state.View
	spec   *cardspec.Registry
	logger *slog.Logger
}

func NewCardCatalog(store remote.Store, view *state.View, spec *cardspec.Registry, logger *slog.Logger) *CardCatalog {
	return &CardCatalog{
		store:  store,
		view:   view,
		spec:   spec,
		logger: logger,
	}
}

// Create normalizes the flat form against the variant table of the request
// type - fields belonging to other variants are pruned, not rejected - and
// persists the new card with isCompleted=false.
func (c *CardCatalog) Create(ctx context.Context, req *models.CreateCardRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return fmt.Errorf("card title is empty: %w", domain.ErrValidation)
	}
	if !c.spec.Known(string(req.Type)) {
		return fmt.Errorf("unknown card type %q: %w", req.Type, domain.ErrValidation)
	}
	if req.CategoryID != nil {
		if _, ok := c.view.CategoryByID(*req.CategoryID); !ok {
			return fmt.Errorf("category %s: %w", *req.CategoryID, domain.ErrNotFound)
		}
	}

	fields := map[string]any{
		"imageUrl": req.ImageURL,
		"content":  req.Content,
		"date":     req.Date,
		"videoUrl": req.VideoURL,
	}
	if req.Type == models.CardTodo {
		fields["todoItems"] = itemsDoc(parseTodoLines(req.TodoText))
	}

	normalized := c.spec.Normalize(string(req.Type), fields)
	if missing := c.spec.MissingRequired(string(req.Type), normalized); len(missing) > 0 {
		return fmt.Errorf("missing required fields %v: %w", missing, domain.ErrValidation)
	}

	var category any
	if req.CategoryID != nil {
		category = *req.CategoryID
	}
	doc := map[string]any{
		"type":        string(req.Type),
		"categoryId":  category,
		"title":       title,
		"isCompleted": false,
	}
	for k, v := range normalized {
		if s, ok := v.(string); ok && s == "" {
			continue // optional empty strings are not persisted
		}
		doc[k] = v
	}

	if _, err := c.store.Create(ctx, remote.CollectionCards, doc); err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	c.logger.Info("card created", "type", req.Type, "title", title)
	return nil
}

// Update applies a partial edit. The card's type never changes; categoryId
// is preserved unless explicitly supplied (null clears it). A supplied
// todo_text re-derives the item list through the done-flag merge.
func (c *CardCatalog) Update(ctx context.Context, id string, req *models.UpdateCardRequest) error {
	card, ok := c.view.CardByID(id)
	if !ok {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}

	patch := make(map[string]any)

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return fmt.Errorf("card title is empty: %w", domain.ErrValidation)
		}
		patch["title"] = title
	}

	if req.CategoryID.Present {
		if req.CategoryID.Value == nil {
			patch["categoryId"] = nil
		} else {
			if _, found := c.view.CategoryByID(*req.CategoryID.Value); !found {
				return fmt.Errorf("category %s: %w", *req.CategoryID.Value, domain.ErrNotFound)
			}
			patch["categoryId"] = *req.CategoryID.Value
		}
	}

	fields := make(map[string]any)
	if req.ImageURL != nil {
		fields["imageUrl"] = *req.ImageURL
	}
	if req.Content != nil {
		fields["content"] = *req.Content
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.VideoURL != nil {
		fields["videoUrl"] = *req.VideoURL
	}
	if req.TodoText != nil {
		fields["todoItems"] = itemsDoc(mergeTodoItems(card.TodoItems(), *req.TodoText))
	}

	normalized := c.spec.Normalize(string(card.Type), fields)
	if missing := c.spec.MissingRequired(string(card.Type), normalized); len(missing) > 0 {
		// Only fields present in the patch can be "missing": an edit may
		// not clear a required field, but may leave it untouched.
		for _, key := range missing {
			if _, present := normalized[key]; present {
				return fmt.Errorf("required field %s cannot be cleared: %w", key, domain.ErrValidation)
			}
		}
	}
	for k, v := range normalized {
		patch[k] = v
	}

	if len(patch) == 0 {
		return nil
	}

	if err := c.store.Update(ctx, remote.CollectionCards, id, patch); err != nil {
		return fmt.Errorf("update card: %w", err)
	}

	c.logger.Info("card updated", "id", id)
	return nil
}

// ToggleCompletion flips the whole-card completion flag. Independent of any
// todo item flags.
func (c *CardCatalog) ToggleCompletion(ctx context.Context, id string) error {
	card, ok := c.view.CardByID(id)
	if !ok {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}

	patch := map[string]any{"isCompleted": !card.IsCompleted}
	if err := c.store.Update(ctx, remote.CollectionCards, id, patch); err != nil {
		return fmt.Errorf("toggle card: %w", err)
	}
	return nil
}

// ToggleTodoItem flips the done flag of the item at index in the current
// ordered sequence. Addressing is positional, not by item identity:
// reordering lines reassigns which flags apply to which text.
func (c *CardCatalog) ToggleTodoItem(ctx context.Context, id string, index int) error {
	card, ok := c.view.CardByID(id)
	if !ok {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	if card.Type != models.CardTodo {
		return fmt.Errorf("card %s is not a todo card: %w", id, domain.ErrValidation)
	}

	items := card.TodoItems()
	if index < 0 || index >= len(items) {
		return fmt.Errorf("todo item index %d out of range: %w", index, domain.ErrValidation)
	}

	updated := make([]models.TodoItem, len(items))
	copy(updated, items)
	updated[index].Done = !updated[index].Done

	patch := map[string]any{"todoItems": itemsDoc(updated)}
	if err := c.store.Update(ctx, remote.CollectionCards, id, patch); err != nil {
		return fmt.Errorf("toggle todo item: %w", err)
	}
	return nil
}

// Delete removes a card unconditionally. Interactive confirmation is the
// caller's concern; the catalog only requires the call to be explicit.
func (c *CardCatalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, remote.CollectionCards, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	c.logger.Info("card deleted", "id", id)
	return nil
}

// Get returns a card from the local view.
func (c *CardCatalog) Get(id string) (models.Card, error) {
	card, ok := c.view.CardByID(id)
	if !ok {
		return models.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return card, nil
}

// parseTodoLines turns a newline-delimited block into fresh items, dropping
// blank lines. Line text is kept verbatim, not trimmed.
func parseTodoLines(text string) []models.TodoItem {
	var items []models.TodoItem
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, models.TodoItem{Text: line})
	}
	return items
}

// mergeTodoItems re-derives the item list from edited text, preserving
// per-item completion: a line exactly matching a prior item's text inherits
// its done flag, new lines start undone, removed lines drop their item.
// Output order follows the edited text. Matching is by exact text, so
// duplicate lines all inherit the flag of the same (first) prior item -
// preserved ambiguity of the source design.
func mergeTodoItems(existing []models.TodoItem, text string) []models.TodoItem {
	prior := make(map[string]bool, len(existing))
	for _, item := range existing {
		if _, seen := prior[item.Text]; !seen {
			prior[item.Text] = item.Done
		}
	}

	items := parseTodoLines(text)
	for i := range items {
		if done, ok := prior[items[i].Text]; ok {
			items[i].Done = done
		}
	}
	return items
}

// itemsDoc renders items in the flat document shape.
func itemsDoc(items []models.TodoItem) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = map[string]any{"text": item.Text, "done": item.Done}
	}
	return out
}
