package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/services"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc")
	serve(h, r)
	assert.Equal(t, "abc", seen)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("x") }))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerAndRoles(t *testing.T) {
	tm := auth.NewTokenManager("s", "p2pgate", time.Hour)
	am := NewAuthMiddleware(tm, nil)
	h := am.Bearer(RequireRole(auth.RoleAdmin)(ok))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	opTok, _, _ := tm.Issue("op-1", auth.RoleOperator)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+opTok)
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code)

	adminTok, _, _ := tm.Issue("admin-1", auth.RoleAdmin)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+adminTok)
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)
}

type stubMerchants map[string]models.Merchant

func (s stubMerchants) Authenticate(_ context.Context, key string) (models.Merchant, error) {
	m, ok := s[key]
	if !ok {
		return models.Merchant{}, services.ErrUnauthorized
	}
	return m, nil
}

func TestMerchantAuth(t *testing.T) {
	am := NewAuthMiddleware(nil, stubMerchants{"m-1.s": {ID: "m-1"}})
	var got models.Merchant
	h := am.Merchant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = MerchantFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)

	r.Header.Set(MerchantKeyHeader, "m-1.bad")
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)

	r.Header.Set(MerchantKeyHeader, "m-1.s")
	assert.Equal(t, http.StatusOK, serve(h, r).Code)
	assert.Equal(t, "m-1", got.ID)
}

func TestRateLimit_PerCaller(t *testing.T) {
	h := RateLimit(2)(ok)
	req := func(key string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(MerchantKeyHeader, key)
		return serve(h, r).Code
	}
	assert.Equal(t, http.StatusNoContent, req("a.x"))
	assert.Equal(t, http.StatusNoContent, req("a.x"))
	assert.Equal(t, http.StatusTooManyRequests, req("a.x"))
	assert.Equal(t, http.StatusNoContent, req("b.x"), "other merchants keep their own bucket")
}
