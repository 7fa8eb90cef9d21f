package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/service"
)

// ShiftServicer defines the service methods needed by shift handlers.
// Satisfied by *service.ShiftService; narrow interface for testability.
type ShiftServicer interface {
	Open(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error)
	Current(ctx context.Context) (database.Shift, error)
	Close(ctx context.Context, req service.CloseShiftRequest) (database.Shift, error)
	Summary(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error)
}

// ShiftHandler handles shift endpoints.
type ShiftHandler struct {
	svc ShiftServicer
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(svc ShiftServicer) *ShiftHandler {
	return &ShiftHandler{svc: svc}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/shifts
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/current", h.Current)
	r.Post("/close", h.Close)
	r.Get("/{id}/summary", h.Summary)
}

type openShiftRequest struct {
	StartAmount string `json:"start_amount"`
}

type closeShiftRequest struct {
	EndAmount string `json:"end_amount"`
}

type shiftResponse struct {
	ID             uuid.UUID  `json:"id"`
	BranchID       uuid.UUID  `json:"branch_id"`
	Status         string     `json:"status"`
	StartAmount    string     `json:"start_amount"`
	EndAmount      *string    `json:"end_amount"`
	ExpectedAmount *string    `json:"expected_amount"`
	DiffAmount     *string    `json:"diff_amount"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedBy       *string    `json:"closed_by"`
	ClosedAt       *time.Time `json:"closed_at"`
}

func toShiftResponse(s database.Shift) shiftResponse {
	resp := shiftResponse{
		ID:             s.ID,
		BranchID:       s.BranchID,
		Status:         s.Status,
		StartAmount:    numericString(s.StartAmount),
		EndAmount:      numericPtr(s.EndAmount),
		ExpectedAmount: numericPtr(s.ExpectedAmount),
		DiffAmount:     numericPtr(s.DiffAmount),
		OpenedBy:       s.OpenedBy,
		OpenedAt:       s.OpenedAt,
		ClosedBy:       uuidPtr(s.ClosedBy),
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

// Open handles POST /branches/{bid}/shifts.
// Returns 200 with the existing shift when one is already open,
// 201 when a new shift was started.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shift, created, err := h.svc.Open(r.Context(), service.OpenShiftRequest{StartAmount: req.StartAmount})
	if err != nil {
		writeServiceError(w, "open shift", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toShiftResponse(shift))
}

// Current handles GET /branches/{bid}/shifts/current.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	shift, err := h.svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, "get current shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Close handles POST /branches/{bid}/shifts/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shift, err := h.svc.Close(r.Context(), service.CloseShiftRequest{EndAmount: req.EndAmount})
	if err != nil {
		writeServiceError(w, "close shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Summary handles GET /branches/{bid}/shifts/{id}/summary.
func (h *ShiftHandler) Summary(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	summary, err := h.svc.Summary(r.Context(), shiftID)
	if err != nil {
		writeServiceError(w, "shift summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
