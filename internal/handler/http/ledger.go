package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/go-chi/chi/v5"
)

type LedgerHandler interface {
	Transfer(w http.ResponseWriter, r *http.Request)
	GetTransaction(w http.ResponseWriter, r *http.Request)
	GetTransactionByReference(w http.ResponseWriter, r *http.Request)
	ReverseTransaction(w http.ResponseWriter, r *http.Request)
	GetBalance(w http.ResponseWriter, r *http.Request)
	HasSufficientBalance(w http.ResponseWriter, r *http.Request)
	ListAccountTransactions(w http.ResponseWriter, r *http.Request)
}

type ledgerHandlerImpl struct {
	ledgerService ledger.LedgerService
}

func NewLedgerHandler(ledgerService ledger.LedgerService) LedgerHandler {
	return &ledgerHandlerImpl{ledgerService: ledgerService}
}

// ========== TRANSFERS ==========

func (h *ledgerHandlerImpl) Transfer(w http.ResponseWriter, r *http.Request) {
	var req ledger.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.ledgerService.Transfer(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Transfer completed", result)
}

func (h *ledgerHandlerImpl) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Transaction ID is required", nil)
		return
	}

	result, err := h.ledgerService.GetTransaction(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *ledgerHandlerImpl) GetTransactionByReference(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference_id")
	if reference == "" {
		response.BadRequest(w, "Query parameter 'reference_id' is required", nil)
		return
	}

	result, err := h.ledgerService.GetTransactionByReference(r.Context(), reference)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *ledgerHandlerImpl) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Transaction ID is required", nil)
		return
	}

	var req ledger.ReverseTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.ledgerService.Reverse(r.Context(), id, req.Reason)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Transaction reversed", result)
}

// ========== ACCOUNTS ==========

func (h *ledgerHandlerImpl) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Account ID is required", nil)
		return
	}

	balance, err := h.ledgerService.GetBalance(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ledger.BalanceResponse{AccountID: id, Balance: balance})
}

func (h *ledgerHandlerImpl) HasSufficientBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Account ID is required", nil)
		return
	}

	amount, err := money.Parse(r.URL.Query().Get("amount"))
	if err != nil {
		response.BadRequest(w, "Query parameter 'amount' must be a decimal amount", nil)
		return
	}

	sufficient, err := h.ledgerService.HasSufficientBalance(r.Context(), id, amount)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ledger.SufficientBalanceResponse{AccountID: id, Amount: amount, Sufficient: sufficient})
}

func (h *ledgerHandlerImpl) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Account ID is required", nil)
		return
	}

	page, limit := pagination(r)
	filter := ledger.TransactionFilter{Page: page, Limit: limit}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}

	result, err := h.ledgerService.ListAccountTransactions(r.Context(), id, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, newMeta(result.Page, result.Limit, result.TotalCount))
}
