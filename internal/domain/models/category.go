package models

import (
	"time"
)

// Category is one node of the user's category tree. ParentID is a weak
// reference by id: deleting a parent does not touch its children, so a
// child's ParentID may dangle after a delete.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"` // nil = root level
	CreatedAt time.Time `json:"created_at"`
}

type CreateCategoryRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type RenameCategoryRequest struct {
	Name string `json:"name"`
}

// CategoryTreeNode is a category with its children nested, in render order.
type CategoryTreeNode struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	ParentID  *string             `json:"parent_id"`
	CreatedAt time.Time           `json:"created_at"`
	Expanded  bool                `json:"expanded"`
	Children  []*CategoryTreeNode `json:"children"`
}

// CategoryDoc flattens a category into the remote document shape. The remote
// store assigns id and createdAt; they are never part of the payload.
func (c *Category) CategoryDoc() map[string]any {
	var parent any
	if c.ParentID != nil {
		parent = *c.ParentID
	}
	return map[string]any{
		"name":     c.Name,
		"parentId": parent,
	}
}

// CategoryFromDoc rebuilds a category from a remote document. Unknown keys
// are ignored; a missing or non-string name yields an empty name rather
// than an error (snapshots are applied best-effort).
func CategoryFromDoc(id string, data map[string]any, createdAt time.Time) Category {
	c := Category{ID: id, CreatedAt: createdAt}
	if name, ok := data["name"].(string); ok {
		c.Name = name
	}
	if parent, ok := data["parentId"].(string); ok && parent != "" {
		c.ParentID = &parent
	}
	return c
}
