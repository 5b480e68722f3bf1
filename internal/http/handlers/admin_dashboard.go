package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/morelandlabs/dentalagent/internal/agent"
	"github.com/morelandlabs/dentalagent/internal/http/middleware"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// DashboardStore is the read-only slice of the clinic store the admin
// dashboard needs.
type DashboardStore interface {
	GetSchedule(ctx context.Context, doctorID int64, window agent.DateWindow) ([]agent.AppointmentRecord, error)
	GetFinancialRecords(ctx context.Context, doctorID int64, window agent.DateWindow) ([]agent.FinancialRecord, error)
	ListInventory(ctx context.Context, doctorID int64) ([]agent.InventoryLevel, error)
	CountPatients(ctx context.Context, doctorID int64, window agent.DateWindow) (int, error)
}

// AdminDashboardHandler serves per-clinic operational numbers for the admin UI.
type AdminDashboardHandler struct {
	store  DashboardStore
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminDashboardHandler creates the dashboard handler.
func NewAdminDashboardHandler(store DashboardStore, logger *logging.Logger) *AdminDashboardHandler {
	if store == nil {
		panic("handlers: dashboard store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{store: store, logger: logger, now: time.Now}
}

type dashboardResponse struct {
	DoctorID       int64   `json:"doctor_id"`
	Window         string  `json:"window"`
	Appointments   int     `json:"appointments"`
	PatientsSeen   int     `json:"patients_seen"`
	RevenuePaid    float64 `json:"revenue_paid"`
	RevenuePending float64 `json:"revenue_pending"`
	LowStockItems  int     `json:"low_stock_items"`
}

// GetDashboard handles GET /admin/clinics/{doctorID}/dashboard?window=this+week.
func (h *AdminDashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(chi.URLParam(r, "doctorID"), 10, 64)
	if err != nil || doctorID <= 0 {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && !claims.AllowsClinic(doctorID) {
		http.Error(w, "token not scoped to this clinic", http.StatusForbidden)
		return
	}

	phrase := r.URL.Query().Get("window")
	window := agent.ResolveDateWindow(phrase, h.now())

	ctx := r.Context()
	appts, err := h.store.GetSchedule(ctx, doctorID, window)
	if err != nil {
		h.fail(w, "load schedule", err)
		return
	}
	records, err := h.store.GetFinancialRecords(ctx, doctorID, window)
	if err != nil {
		h.fail(w, "load invoices", err)
		return
	}
	items, err := h.store.ListInventory(ctx, doctorID)
	if err != nil {
		h.fail(w, "load inventory", err)
		return
	}
	patients, err := h.store.CountPatients(ctx, doctorID, window)
	if err != nil {
		h.fail(w, "count patients", err)
		return
	}

	resp := dashboardResponse{
		DoctorID:     doctorID,
		Window:       window.Label,
		Appointments: len(appts),
		PatientsSeen: patients,
	}
	for _, rec := range records {
		switch rec.Status {
		case "paid", "completed":
			resp.RevenuePaid += rec.Amount
		case "pending":
			resp.RevenuePending += rec.Amount
		}
	}
	for _, item := range items {
		if item.Quantity <= item.Threshold {
			resp.LowStockItems++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *AdminDashboardHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("admin dashboard: "+what, "error", err)
	http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
}
