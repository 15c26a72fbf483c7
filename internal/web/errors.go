package web

// errors.go renders every failure the same way: the technical error is
// logged with the request id, the client gets core.MapError's message,
// action and code.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/uniimport/internal/core"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errInvalidID   = errors.New("import not found: invalid id")
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeJSONStatus(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status of a service error.
func statusFor(err error) int {
	var parseErr *core.ParseError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnknownProfile), errors.Is(err, core.ErrImportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNoFile):
		return http.StatusBadRequest
	case errors.As(err, &parseErr):
		if core.MapError(err).Code == "FILE001" {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
