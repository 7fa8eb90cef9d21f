package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/handler"
	"github.com/warungpos/api/internal/service"
)

// --- Mock ShiftServicer ---

type mockShiftService struct {
	openFn    func(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error)
	currentFn func(ctx context.Context) (database.Shift, error)
	closeFn   func(ctx context.Context, req service.CloseShiftRequest) (database.Shift, error)
	summaryFn func(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error)
}

func (m *mockShiftService) Open(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error) {
	return m.openFn(ctx, req)
}

func (m *mockShiftService) Current(ctx context.Context) (database.Shift, error) {
	return m.currentFn(ctx)
}

func (m *mockShiftService) Close(ctx context.Context, req service.CloseShiftRequest) (database.Shift, error) {
	return m.closeFn(ctx, req)
}

func (m *mockShiftService) Summary(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error) {
	return m.summaryFn(ctx, shiftID)
}

func newShiftRouter(svc handler.ShiftServicer) chi.Router {
	r := chi.NewRouter()
	r.Route("/branches/{bid}/shifts", handler.NewShiftHandler(svc).RegisterRoutes)
	return r
}

func sampleShift(t *testing.T, branchID uuid.UUID) database.Shift {
	t.Helper()
	return database.Shift{
		ID:          uuid.New(),
		BranchID:    branchID,
		Status:      "OPEN",
		StartAmount: testNumeric(t, "150.00"),
		OpenedBy:    uuid.New(),
		OpenedAt:    time.Now(),
	}
}

// --- Tests ---

func TestOpenShift_Success(t *testing.T) {
	branchID := uuid.New()
	shift := sampleShift(t, branchID)

	var captured service.OpenShiftRequest
	svc := &mockShiftService{
		openFn: func(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error) {
			captured = req
			return shift, true, nil
		},
	}
	router := newShiftRouter(svc)

	body, _ := json.Marshal(map[string]string{"start_amount": "150.00"})
	req := httptest.NewRequest("POST", "/branches/"+branchID.String()+"/shifts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
	}
	if captured.StartAmount != "150.00" {
		t.Errorf("start amount not forwarded: %q", captured.StartAmount)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["start_amount"] != "150.00" {
		t.Errorf("start_amount: got %v", resp["start_amount"])
	}
	if resp["end_amount"] != nil {
		t.Errorf("end_amount should be null while open, got %v", resp["end_amount"])
	}
}

func TestOpenShift_AlreadyOpen(t *testing.T) {
	branchID := uuid.New()
	shift := sampleShift(t, branchID)

	svc := &mockShiftService{
		openFn: func(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error) {
			return shift, false, nil
		},
	}
	router := newShiftRouter(svc)

	body, _ := json.Marshal(map[string]string{"start_amount": "999.00"})
	req := httptest.NewRequest("POST", "/branches/"+branchID.String()+"/shifts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d for the already-open shift", rr.Code, http.StatusOK)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != shift.ID.String() {
		t.Errorf("id: got %v, want the existing shift %v", resp["id"], shift.ID)
	}
}

func TestOpenShift_InvalidAmount(t *testing.T) {
	svc := &mockShiftService{
		openFn: func(ctx context.Context, req service.OpenShiftRequest) (database.Shift, bool, error) {
			return database.Shift{}, false, service.ErrInvalidAmount
		},
	}
	router := newShiftRouter(svc)

	body, _ := json.Marshal(map[string]string{"start_amount": "-5"})
	req := httptest.NewRequest("POST", "/branches/"+uuid.NewString()+"/shifts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCurrentShift(t *testing.T) {
	branchID := uuid.New()
	shift := sampleShift(t, branchID)

	svc := &mockShiftService{
		currentFn: func(ctx context.Context) (database.Shift, error) {
			return shift, nil
		},
	}
	router := newShiftRouter(svc)

	req := httptest.NewRequest("GET", "/branches/"+branchID.String()+"/shifts/current", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != shift.ID.String() {
		t.Errorf("id: got %v, want %v", resp["id"], shift.ID)
	}
}

func TestCurrentShift_NoneOpen(t *testing.T) {
	svc := &mockShiftService{
		currentFn: func(ctx context.Context) (database.Shift, error) {
			return database.Shift{}, service.ErrShiftNotFound
		},
	}
	router := newShiftRouter(svc)

	req := httptest.NewRequest("GET", "/branches/"+uuid.NewString()+"/shifts/current", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCloseShift_Success(t *testing.T) {
	branchID := uuid.New()
	shift := sampleShift(t, branchID)
	shift.Status = "CLOSED"
	shift.EndAmount = testNumeric(t, "340.00")
	shift.ExpectedAmount = testNumeric(t, "350.00")
	shift.DiffAmount = testNumeric(t, "-10.00")

	var captured service.CloseShiftRequest
	svc := &mockShiftService{
		closeFn: func(ctx context.Context, req service.CloseShiftRequest) (database.Shift, error) {
			captured = req
			return shift, nil
		},
	}
	router := newShiftRouter(svc)

	body, _ := json.Marshal(map[string]string{"end_amount": "340.00"})
	req := httptest.NewRequest("POST", "/branches/"+branchID.String()+"/shifts/close", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
	}
	if captured.EndAmount != "340.00" {
		t.Errorf("end amount not forwarded: %q", captured.EndAmount)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["diff_amount"] != "-10.00" {
		t.Errorf("diff_amount: got %v", resp["diff_amount"])
	}
}

func TestCloseShift_ActiveOrders(t *testing.T) {
	svc := &mockShiftService{
		closeFn: func(ctx context.Context, req service.CloseShiftRequest) (database.Shift, error) {
			return database.Shift{}, service.ErrPrecondition
		},
	}
	router := newShiftRouter(svc)

	body, _ := json.Marshal(map[string]string{"end_amount": "340.00"})
	req := httptest.NewRequest("POST", "/branches/"+uuid.NewString()+"/shifts/close", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestShiftSummary(t *testing.T) {
	branchID := uuid.New()
	shift := sampleShift(t, branchID)

	svc := &mockShiftService{
		summaryFn: func(ctx context.Context, shiftID uuid.UUID) (*service.ShiftSummary, error) {
			if shiftID != shift.ID {
				t.Errorf("shift ID: got %v, want %v", shiftID, shift.ID)
			}
			return &service.ShiftSummary{Shift: shift, OrderCount: 12}, nil
		},
	}
	router := newShiftRouter(svc)

	req := httptest.NewRequest("GET", "/branches/"+branchID.String()+"/shifts/"+shift.ID.String()+"/summary", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["order_count"] != float64(12) {
		t.Errorf("order_count: got %v", resp["order_count"])
	}
}

func TestShiftSummary_InvalidID(t *testing.T) {
	router := newShiftRouter(&mockShiftService{})

	req := httptest.NewRequest("GET", "/branches/"+uuid.NewString()+"/shifts/nope/summary", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
