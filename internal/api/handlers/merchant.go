package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/api/validate"
	"github.com/baharkarakas/p2pgate/internal/middleware"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/services"
)

type Allocator interface {
	Allocate(ctx context.Context, req services.AllocationRequest) (services.Allocation, error)
}

type MerchantHandler struct {
	Alloc     Allocator
	Txns      *services.TransactionService
	Merchants *services.MerchantService
}

type createTxReq struct {
	Amount      int64      `json:"amount"`
	MethodID    string     `json:"methodId"`
	OrderID     string     `json:"orderId"`
	Currency    string     `json:"currency"`
	PayerRef    string     `json:"payerRef"`
	ClientName  string     `json:"clientName"`
	CallbackURI string     `json:"callbackUri"`
	SuccessURI  string     `json:"successUri"`
	FailURI     string     `json:"failUri"`
	Rate        *float64   `json:"rate"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type requisiteSummary struct {
	InstrumentID  string `json:"instrumentId"`
	DisplayNumber string `json:"displayNumber"`
	RecipientName string `json:"recipientName"`
	BankType      string `json:"bankType"`
}

type methodSummary struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

type allocationResp struct {
	TransactionID     string                   `json:"transactionId"`
	NumericSequenceID int64                    `json:"numericSequenceId"`
	OrderID           string                   `json:"orderId"`
	Amount            int64                    `json:"amount"`
	Commission        int64                    `json:"commission"`
	Currency          string                   `json:"currency"`
	Status            models.TransactionStatus `json:"status"`
	BoundOperatorID   string                   `json:"boundOperatorId"`
	RequisiteSummary  requisiteSummary         `json:"requisiteSummary"`
	MethodSummary     methodSummary            `json:"methodSummary"`
	CreatedAt         time.Time                `json:"createdAt"`
	ExpiresAt         time.Time                `json:"expiresAt"`
}

func (h *MerchantHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())

	var req createTxReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "invalid json body", nil)
		return
	}
	if errs := validate.Collect(
		validate.Required("orderId", req.OrderID),
		validate.MaxLen("orderId", req.OrderID, 128),
		validate.Required("methodId", req.MethodID),
		validate.MinInt("amount", req.Amount, 1),
		validate.Currency("currency", req.Currency),
		validate.OptionalURL("callbackUri", req.CallbackURI),
		validate.OptionalURL("successUri", req.SuccessURI),
		validate.OptionalURL("failUri", req.FailURI),
	); len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "invalid request", errs)
		return
	}

	out, err := h.Alloc.Allocate(r.Context(), services.AllocationRequest{
		MerchantID:  merchant.ID,
		MethodID:    req.MethodID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PayerRef:    req.PayerRef,
		PayerIP:     clientIP(r),
		ClientName:  req.ClientName,
		CallbackURI: req.CallbackURI,
		SuccessURI:  req.SuccessURI,
		FailURI:     req.FailURI,
		Rate:        req.Rate,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}

	tx := out.Transaction
	httpx.WriteJSON(w, http.StatusCreated, allocationResp{
		TransactionID:     tx.ID,
		NumericSequenceID: tx.NumericID,
		OrderID:           tx.OrderID,
		Amount:            tx.Amount,
		Commission:        tx.Commission,
		Currency:          tx.Currency,
		Status:            tx.Status,
		BoundOperatorID:   tx.OperatorID,
		RequisiteSummary: requisiteSummary{
			InstrumentID:  out.Requisite.ID,
			DisplayNumber: out.Requisite.DisplayNumber(),
			RecipientName: out.Requisite.RecipientName,
			BankType:      out.Requisite.BankType,
		},
		MethodSummary: methodSummary{
			ID:       out.Method.ID,
			Code:     out.Method.Code,
			Name:     out.Method.Name,
			Type:     out.Method.Type,
			Currency: out.Method.Currency,
		},
		CreatedAt: tx.CreatedAt,
		ExpiresAt: tx.ExpiresAt,
	})
}

func (h *MerchantHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())
	tx, err := h.Txns.GetForMerchant(r.Context(), merchant.ID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *MerchantHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())
	tx, err := h.Txns.GetByOrder(r.Context(), merchant.ID, chi.URLParam(r, "orderId"))
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *MerchantHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())
	limit, offset, page := httpx.Page(r)
	q := r.URL.Query()
	list, total, err := h.Txns.List(r.Context(), models.TransactionFilter{
		MerchantID: merchant.ID,
		MethodID:   q.Get("method_id"),
		OrderID:    q.Get("order_id"),
		Status:     models.TransactionStatus(q.Get("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.PageBody{Data: nonNil(list), Total: total, Page: page, Limit: limit})
}

func (h *MerchantHandler) Methods(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())
	list, err := h.Merchants.Methods(r.Context(), merchant.ID)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"methods": nonNil(list)})
}

func (h *MerchantHandler) Connect(w http.ResponseWriter, r *http.Request) {
	merchant, _ := middleware.MerchantFrom(r.Context())
	sum, err := h.Merchants.Summary(r.Context(), merchant)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}

func clientIP(r *http.Request) *string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return nil
	}
	return &host
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
