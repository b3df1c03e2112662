package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/requestid"
	"github.com/kushtati/kushtati-immo-api/internal/security/middleware"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
	Debug   string              `json:"debug,omitempty"`
}

// MessageResponse acknowledges an action that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindBadRequest:   http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindConflict:     http.StatusConflict,
	domain.KindInternal:     http.StatusInternalServerError,
}

// responder renders JSON bodies and maps service errors onto statuses.
type responder struct {
	logger *slog.Logger
	// debug exposes the cause of internal errors to clients.
	debug bool
}

func (rs responder) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal(err)
	}
	status, ok := kindStatus[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := ErrorResponse{Error: string(de.Kind), Message: de.Message, Details: de.Fields}
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if rs.debug && de.Err != nil {
			body.Debug = de.Err.Error()
		}
	}
	rs.write(w, status, body)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.BadRequest("request body too large")
		}
		return domain.BadRequest("invalid JSON body: " + err.Error())
	}
}

// principal returns the caller. Routes that call it sit behind RequireAuth.
func principal(r *http.Request) domain.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}
