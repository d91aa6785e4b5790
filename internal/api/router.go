package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/p2pgate/internal/api/handlers"
	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/config"
	"github.com/baharkarakas/p2pgate/internal/metrics"
	"github.com/baharkarakas/p2pgate/internal/middleware"
	"github.com/baharkarakas/p2pgate/internal/services"
	"github.com/baharkarakas/p2pgate/internal/worker"
)

type RouterDeps struct {
	Cfg        config.Config
	TM         *auth.TokenManager
	Alloc      handlers.Allocator
	Txns       *services.TransactionService
	Merchants  *services.MerchantService
	Requisites *services.RequisiteService
	Loops      []*worker.Loop
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.MerchantKeyHeader, middleware.RequestIDHeader},
	}))

	r.Get("/health", health(d.Loops))
	r.Handle("/metrics", metrics.Handler())

	am := middleware.NewAuthMiddleware(d.TM, d.Merchants)
	mh := &handlers.MerchantHandler{Alloc: d.Alloc, Txns: d.Txns, Merchants: d.Merchants}
	oh := &handlers.OperatorHandler{Txns: d.Txns, Requisites: d.Requisites}
	ah := &handlers.AdminHandler{Txns: d.Txns}

	r.Route("/api/v1", func(r chi.Router) {
		if d.Cfg.Env == "dev" {
			r.Post("/auth/dev-token", (&handlers.AuthHandler{TM: d.TM}).DevToken)
		}

		r.Route("/merchant", func(r chi.Router) {
			r.Use(am.Merchant)
			r.Post("/transactions", mh.CreateTransaction)
			r.Get("/transactions", mh.ListTransactions)
			r.Get("/transactions/by-order/{orderId}", mh.GetByOrder)
			r.Get("/transactions/{id}", mh.GetTransaction)
			r.Get("/methods", mh.Methods)
			r.Get("/connect", mh.Connect)
		})

		r.Route("/operator", func(r chi.Router) {
			r.Use(am.Bearer, middleware.RequireRole(auth.RoleOperator))
			r.Get("/transactions", oh.ListTransactions)
			r.Get("/transactions/{id}", oh.GetTransaction)
			r.Patch("/transactions/{id}/status", oh.UpdateStatus)
			r.Get("/requisites", oh.ListRequisites)
			r.Post("/requisites/{id}/archive", oh.Archive)
			r.Post("/requisites/{id}/unarchive", oh.Unarchive)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(am.Bearer, middleware.RequireRole(auth.RoleAdmin))
			r.Get("/transactions", ah.ListTransactions)
			r.Put("/transactions/status", ah.UpdateStatus)
			if d.Cfg.AdminStatusOverride {
				r.Put("/transactions/status/override", ah.OverrideStatus)
			}
		})
	})

	return r
}

func health(loops []*worker.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make([]worker.Status, 0, len(loops))
		code := http.StatusOK
		for _, l := range loops {
			s := l.Status()
			statuses = append(statuses, s)
			if !s.Healthy && (s.LastTick != nil || s.LastError != nil) {
				code = http.StatusServiceUnavailable
			}
		}
		state := "ok"
		if code != http.StatusOK {
			state = "degraded"
		}
		httpx.WriteJSON(w, code, map[string]any{"status": state, "loops": statuses})
	}
}
