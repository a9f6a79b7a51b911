package handler

import (
	"log/slog"
	"net/http"

	"lifelog/internal/domain/models"
	"lifelog/internal/httputil"
	"lifelog/internal/service"
)

// CategoryHandler handles category HTTP requests. Writes answer 202: the
// store accepted the write, and the local view catches up when the snapshot
// arrives.
type CategoryHandler struct {
	tree   *service.CategoryTree
	logger *slog.Logger
}

func NewCategoryHandler(tree *service.CategoryTree, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{tree: tree, logger: logger}
}

// GetTree returns the nested category tree in render order
// GET /api/categories/tree
func (h *CategoryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	nodes := h.tree.Tree()
	if nodes == nil {
		nodes = []*models.CategoryTreeNode{}
	}
	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// Create creates a category
// POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tree.Create(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Rename renames a category; empty names are a silent no-op
// PATCH /api/categories/{id}
func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "category id is required")
		return
	}

	var req models.RenameCategoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tree.Rename(r.Context(), id, req.Name); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Delete removes one category node; children are not touched
// DELETE /api/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "category id is required")
		return
	}

	if err := h.tree.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Toggle flips a node's expand/collapse state
// POST /api/categories/{id}/toggle
func (h *CategoryHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "category id is required")
		return
	}

	expanded := h.tree.Toggle(id)
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"expanded": expanded})
}
