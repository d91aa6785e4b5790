package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/baharkarakas/p2pgate/internal/services"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindMethodUnavailable, services.KindNotFound:
		return http.StatusNotFound
	case services.KindDuplicateOrder, services.KindNoRequisite,
		services.KindInvalidTransition, services.KindStoreConflict:
		return http.StatusConflict
	case services.KindStoreTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteServiceError renders err with its stable code. Unclassified errors
// are logged and hidden behind a generic 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		if se.Kind == services.KindStoreTimeout {
			w.Header().Set("Retry-After", "1")
		}
		WriteError(w, StatusFor(se.Kind), string(se.Kind), se.Message, se.Details)
		return
	}
	slog.Error("unhandled error", "err", err)
	WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
}

// DecodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// maxOffset bounds (page-1)*limit so deep pages cannot overflow.
const maxOffset = math.MaxInt32

// Page reads page/limit query parameters (1-based page, limit capped at 100).
func Page(r *http.Request) (limit, offset, page int) {
	limit, page = 10, 1
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, 100)
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page = min(n, maxOffset/limit+1)
	}
	return limit, (page - 1) * limit, page
}

// PageBody is the list envelope shared by every paginated endpoint.
type PageBody struct {
	Data  any `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
