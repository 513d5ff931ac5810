package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Batches
	CreateBatch(w http.ResponseWriter, r *http.Request)
	ListBatches(w http.ResponseWriter, r *http.Request)
	GetBatch(w http.ResponseWriter, r *http.Request)
	GetBatchSummary(w http.ResponseWriter, r *http.Request)
	GetBatchItems(w http.ResponseWriter, r *http.Request)
	CalculateSalaries(w http.ResponseWriter, r *http.Request)
	ProcessBatch(w http.ResponseWriter, r *http.Request)
	CancelBatch(w http.ResponseWriter, r *http.Request)

	// Items
	RetryItem(w http.ResponseWriter, r *http.Request)
	ReprocessItem(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== BATCHES ==========

func (h *payrollHandlerImpl) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll batch created", result)
}

func (h *payrollHandlerImpl) ListBatches(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	filter := payroll.BatchFilter{
		Page:      page,
		Limit:     limit,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}
	if month := query.Get("month"); month != "" {
		filter.PayrollMonth = &month
	}
	if companyID := query.Get("company_id"); companyID != "" {
		filter.CompanyID = &companyID
	}
	if sortBy := query.Get("sort_by"); sortBy != "" {
		filter.SortBy = sortBy
	}
	if sortOrder := query.Get("sort_order"); sortOrder != "" {
		filter.SortOrder = sortOrder
	}

	result, err := h.payrollService.ListBatches(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, newMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.GetBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetBatchSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.GetBatchSummary(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetBatchItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	page, limit := pagination(r)
	filter := payroll.ItemFilter{Page: page, Limit: limit}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}

	result, err := h.payrollService.GetBatchItems(r.Context(), id, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, newMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) CalculateSalaries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.CalculateSalaries(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.Process(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

func (h *payrollHandlerImpl) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Batch ID is required", nil)
		return
	}

	result, err := h.payrollService.CancelBatch(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch cancelled", result)
}

// ========== ITEMS ==========

func (h *payrollHandlerImpl) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Item ID is required", nil)
		return
	}

	result, err := h.payrollService.RetryItem(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll item ready to reprocess", result)
}

func (h *payrollHandlerImpl) ReprocessItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Item ID is required", nil)
		return
	}

	result, err := h.payrollService.ReprocessItem(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
