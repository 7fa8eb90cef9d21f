package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warungpos/api/internal/database"
)

// QueueServicer defines the service methods needed by queue handlers.
// Satisfied by *service.QueueService; narrow interface for testability.
type QueueServicer interface {
	Enqueue(ctx context.Context, orderID uuid.UUID, priority string) (database.QueueEntry, error)
	List(ctx context.Context) ([]database.QueueEntry, error)
	Reorder(ctx context.Context) ([]database.QueueEntry, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (database.QueueEntry, error)
}

// QueueHandler handles kitchen queue endpoints.
type QueueHandler struct {
	svc QueueServicer
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(svc QueueServicer) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// RegisterRoutes registers queue endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/queue
func (h *QueueHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Enqueue)
	r.Post("/reorder", h.Reorder)
	r.Patch("/{orderID}/status", h.UpdateStatus)
}

type enqueueRequest struct {
	OrderID  string `json:"order_id"`
	Priority string `json:"priority"`
}

type updateQueueStatusRequest struct {
	Status string `json:"status"`
}

type queueEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Position  int32     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toQueueEntryResponse(e database.QueueEntry) queueEntryResponse {
	return queueEntryResponse{
		ID:        e.ID,
		BranchID:  e.BranchID,
		OrderID:   e.OrderID,
		Status:    e.Status,
		Priority:  e.Priority,
		Position:  e.Position,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toQueueEntryResponses(entries []database.QueueEntry) []queueEntryResponse {
	resp := make([]queueEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toQueueEntryResponse(e)
	}
	return resp
}

// List handles GET /branches/{bid}/queue.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "list queue", err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueEntryResponses(entries))
}

// Enqueue handles POST /branches/{bid}/queue.
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	entry, err := h.svc.Enqueue(r.Context(), orderID, req.Priority)
	if err != nil {
		writeServiceError(w, "enqueue order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toQueueEntryResponse(entry))
}

// Reorder handles POST /branches/{bid}/queue/reorder.
func (h *QueueHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Reorder(r.Context())
	if err != nil {
		writeServiceError(w, "reorder queue", err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueEntryResponses(entries))
}

// UpdateStatus handles PATCH /branches/{bid}/queue/{orderID}/status.
func (h *QueueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateQueueStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	entry, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update queue status", err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueEntryResponse(entry))
}
