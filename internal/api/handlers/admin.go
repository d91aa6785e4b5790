package handlers

import (
	"net/http"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/api/validate"
	"github.com/baharkarakas/p2pgate/internal/middleware"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/services"
)

type AdminHandler struct {
	Txns *services.TransactionService
}

type adminStatusReq struct {
	TransactionID string                   `json:"transactionId"`
	Status        models.TransactionStatus `json:"status"`
	Reason        string                   `json:"reason"`
}

func adminActor(r *http.Request) services.Actor {
	p, _ := middleware.PrincipalFrom(r.Context())
	return services.Actor{Role: services.ActorAdmin, ID: p.UserID}
}

func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := httpx.Page(r)
	q := r.URL.Query()
	list, total, err := h.Txns.List(r.Context(), models.TransactionFilter{
		MerchantID: q.Get("merchant_id"),
		OperatorID: q.Get("operator_id"),
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

func decodeAdminStatus(w http.ResponseWriter, r *http.Request) (adminStatusReq, bool) {
	var req adminStatusReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "invalid json body", nil)
		return req, false
	}
	if errs := validate.Collect(
		validate.Required("transactionId", req.TransactionID),
		validate.Required("status", string(req.Status)),
	); len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "invalid request", errs)
		return req, false
	}
	return req, true
}

// UpdateStatus goes through the same guarded transition as operators.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAdminStatus(w, r)
	if !ok {
		return
	}
	tx, err := h.Txns.Transition(r.Context(), req.TransactionID, req.Status, adminActor(r))
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAdminStatus(w, r)
	if !ok {
		return
	}
	if e := validate.Required("reason", req.Reason); e != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "invalid request", validate.Errs{*e})
		return
	}
	tx, err := h.Txns.Override(r.Context(), req.TransactionID, req.Status, adminActor(r), req.Reason)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}
