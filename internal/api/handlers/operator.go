package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/middleware"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/services"
)

type OperatorHandler struct {
	Txns       *services.TransactionService
	Requisites *services.RequisiteService
}

type statusReq struct {
	Status models.TransactionStatus `json:"status"`
}

func operatorActor(r *http.Request) services.Actor {
	p, _ := middleware.PrincipalFrom(r.Context())
	return services.Actor{Role: services.ActorOperator, ID: p.UserID}
}

func (h *OperatorHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor := operatorActor(r)
	limit, offset, page := httpx.Page(r)
	list, total, err := h.Txns.List(r.Context(), models.TransactionFilter{
		OperatorID: actor.ID,
		Status:     models.TransactionStatus(r.URL.Query().Get("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.PageBody{Data: nonNil(list), Total: total, Page: page, Limit: limit})
}

func (h *OperatorHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Txns.Get(r.Context(), chi.URLParam(r, "id"), operatorActor(r))
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *OperatorHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Status == "" {
		httpx.WriteError(w, http.StatusBadRequest, string(services.KindValidation), "status is required", nil)
		return
	}
	tx, err := h.Txns.Transition(r.Context(), chi.URLParam(r, "id"), req.Status, operatorActor(r))
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *OperatorHandler) ListRequisites(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "true"
	list, err := h.Requisites.ListForOperator(r.Context(), operatorActor(r).ID, archived)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"requisites": nonNil(list)})
}

func (h *OperatorHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *OperatorHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *OperatorHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	req, err := h.Requisites.SetArchived(r.Context(), operatorActor(r).ID, chi.URLParam(r, "id"), archived)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}
