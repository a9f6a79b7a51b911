package handler

import (
	"log/slog"
	"net/http"

	"lifelog/internal/auth"
	"lifelog/internal/domain/models"
	"lifelog/internal/httputil"
	"lifelog/internal/service"
)

// SessionHandler drives the session gate over HTTP. Setup and unlock answer
// with a bearer token for the rest of the API.
type SessionHandler struct {
	gate      *service.SessionGate
	tokens    *auth.TokenIssuer
	partition string
	logger    *slog.Logger
}

func NewSessionHandler(gate *service.SessionGate, tokens *auth.TokenIssuer, partition string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		gate:      gate,
		tokens:    tokens,
		partition: partition,
		logger:    logger,
	}
}

type sessionResponse struct {
	State service.SessionState `json:"state"`
	Token string               `json:"token,omitempty"`
}

// GetState reports the gate state
// GET /api/session
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{State: h.gate.State()})
}

// Setup stores a new credential and opens the session
// POST /api/session/setup
func (h *SessionHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req models.SetupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gate.SubmitSetup(r.Context(), req.PIN, req.Confirm); err != nil {
		handleError(w, err)
		return
	}

	h.respondAuthenticated(w)
}

// Unlock verifies the credential and opens the session
// POST /api/session/unlock
func (h *SessionHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req models.UnlockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gate.SubmitUnlock(r.Context(), req.PIN); err != nil {
		handleError(w, err)
		return
	}

	h.respondAuthenticated(w)
}

// Lock returns the session to the lock screen. Not a sign-out: the
// credential and all data stay.
// POST /api/session/lock
func (h *SessionHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.gate.Lock()
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{State: h.gate.State()})
}

func (h *SessionHandler) respondAuthenticated(w http.ResponseWriter) {
	token, err := h.tokens.Issue(h.partition)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to issue session token")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{State: h.gate.State(), Token: token})
}
