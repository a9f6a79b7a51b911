package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"lifelog/internal/domain/models"
	"lifelog/internal/httputil"
	"lifelog/internal/service"
)

// CardHandler handles card HTTP requests.
type CardHandler struct {
	catalog *service.CardCatalog
	filter  *service.FilterEngine
	logger  *slog.Logger
}

func NewCardHandler(catalog *service.CardCatalog, filter *service.FilterEngine, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		catalog: catalog,
		filter:  filter,
		logger:  logger,
	}
}

// List returns cards matching the composite filter
// GET /api/cards?search=&category_id=&type=&status=
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := models.CardFilter{
		Search: query.Get("search"),
		Type:   query.Get("type"),
		Status: query.Get("status"),
	}
	if category := query.Get("category_id"); category != "" {
		filter.CategoryID = &category
	}

	httputil.RespondJSON(w, http.StatusOK, h.filter.Apply(filter))
}

// Get returns one card from the local view
// GET /api/cards/{id}
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "card id is required")
		return
	}

	card, err := h.catalog.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, card)
}

// Create creates a card of the given type
// POST /api/cards
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCardRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.Create(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Update applies a partial edit; the card's type cannot change
// PATCH /api/cards/{id}
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "card id is required")
		return
	}

	var req models.UpdateCardRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.Update(r.Context(), id, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Delete removes a card. Confirmation happens client-side; this call is the
// explicit delete.
// DELETE /api/cards/{id}
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "card id is required")
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ToggleCompletion flips the whole-card completion flag
// POST /api/cards/{id}/toggle
func (h *CardHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "card id is required")
		return
	}

	if err := h.catalog.ToggleCompletion(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ToggleTodoItem flips one todo item's done flag by position
// POST /api/cards/{id}/todo/{index}/toggle
func (h *CardHandler) ToggleTodoItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "card id is required")
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "todo item index must be a number")
		return
	}

	if err := h.catalog.ToggleTodoItem(r.Context(), id, index); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HealthCheck reports liveness
// GET /health
func (h *CardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
