package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"lifelog/internal/domain"
	"lifelog/internal/domain/models"
	"lifelog/internal/remote"
	"lifelog/internal/state"
)

// CategoryTree exposes the hierarchical category operations. Reads come
// from the local view; writes go to the remote store and become visible
// only when the resulting snapshot round-trips back through the reconciler.
type CategoryTree struct {
	store  remote.Store
	view   *state.View
	logger *slog.Logger

	// Expand/collapse is per-node UI state keyed by id, default collapsed.
	// It lives here rather than remotely: it is never persisted.
	mu       sync.Mutex
	expanded map[string]bool
}

func NewCategoryTree(store remote.Store, view *state.View, logger *slog.Logger) *CategoryTree {
	return &CategoryTree{
		store:    store,
		view:     view,
		logger:   logger,
		expanded: make(map[string]bool),
	}
}

// Create appends a new category under parentID (nil = root). The name is
// trimmed; an empty result is rejected without a remote call. A parent id
// must reference an existing category - this is what keeps the parent graph
// a forest, since there is no reparent operation.
func (t *CategoryTree) Create(ctx context.Context, req *models.CreateCategoryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("category name is empty: %w", domain.ErrValidation)
	}

	if req.ParentID != nil {
		if _, ok := t.view.CategoryByID(*req.ParentID); !ok {
			return fmt.Errorf("parent category %s: %w", *req.ParentID, domain.ErrNotFound)
		}
	}

	category := models.Category{Name: name, ParentID: req.ParentID}
	if _, err := t.store.Create(ctx, remote.CollectionCategories, category.CategoryDoc()); err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	t.logger.Info("category created", "name", name, "parent_id", req.ParentID)
	return nil
}

// Rename persists a trimmed new name. An empty or whitespace-only name is a
// silent no-op: the stored name stays as it was and no error is raised.
func (t *CategoryTree) Rename(ctx context.Context, id, newName string) error {
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil
	}

	if _, ok := t.view.CategoryByID(id); !ok {
		return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}

	if err := t.store.Update(ctx, remote.CollectionCategories, id, map[string]any{"name": name}); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}

	t.logger.Info("category renamed", "id", id, "name", name)
	return nil
}

// Delete removes exactly one node. Children keep their parentId and become
// unreachable from any surviving root - they vanish from the visible tree
// while remaining in storage. Preserved source behavior; see DESIGN.md.
func (t *CategoryTree) Delete(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, remote.CollectionCategories, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	t.mu.Lock()
	delete(t.expanded, id)
	t.mu.Unlock()

	t.logger.Info("category deleted", "id", id)
	return nil
}

// DescendantsOf enumerates all ids transitively below id, depth first.
// The result never contains id itself.
func (t *CategoryTree) DescendantsOf(id string) []string {
	return t.view.DescendantsOf(id)
}

// Tree returns the nested render tree: children name-ascending at every
// level, each node carrying its expand state.
func (t *CategoryTree) Tree() []*models.CategoryTreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buildLevel(nil)
}

func (t *CategoryTree) buildLevel(parentID *string) []*models.CategoryTreeNode {
	children := t.view.ChildrenOf(parentID)
	if len(children) == 0 {
		return nil
	}

	nodes := make([]*models.CategoryTreeNode, 0, len(children))
	for _, c := range children {
		id := c.ID
		nodes = append(nodes, &models.CategoryTreeNode{
			ID:        c.ID,
			Name:      c.Name,
			ParentID:  c.ParentID,
			CreatedAt: c.CreatedAt,
			Expanded:  t.expanded[c.ID],
			Children:  t.buildLevel(&id),
		})
	}
	return nodes
}

// Toggle flips a node's expand state and returns the new value.
func (t *CategoryTree) Toggle(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expanded[id] = !t.expanded[id]
	return t.expanded[id]
}

// IsExpanded reports a node's expand state; unknown ids are collapsed.
func (t *CategoryTree) IsExpanded(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded[id]
}
