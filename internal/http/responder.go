package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/planning-service/internal/application"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingToken   = errors.New("a bearer token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error_code", code, "error", err)
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

type errorRule struct {
	target  error
	status  int
	code    string
	message string
}

// errorRules is ordered: the first matching target wins.
var errorRules = []errorRule{
	{application.ErrInvalidInterval, http.StatusBadRequest, "INVALID_INTERVAL", "start must not be after end"},
	{application.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "the requested resource does not exist"},
	{application.ErrOverlapConflict, http.StatusConflict, "OVERLAP_CONFLICT", "the period overlaps an existing availability"},
	{application.ErrConflictDetected, http.StatusConflict, "CONFLICT_DETECTED", "the user already has conflicting tasks"},
	{application.ErrProjectClosed, http.StatusConflict, "PROJECT_CLOSED", "the project is closed"},
	{application.ErrUserUnavailable, http.StatusConflict, "USER_UNAVAILABLE", "the user is not available for this period"},
	{application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "the username or email is already taken"},
	{application.ErrOutOfProjectRange, http.StatusUnprocessableEntity, "OUT_OF_PROJECT_RANGE", "the task period is outside the project period"},
	{application.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "you are not allowed to perform this operation"},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password"},
	{application.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "authentication is required"},
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.loggerFor(ctx).InfoContext(ctx, "validation failed", "error", err)
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}
		message := rule.message
		var conflict *application.ConflictError
		var outOfRange *application.RangeError
		switch {
		case errors.As(err, &conflict):
			message = conflict.Error()
		case errors.As(err, &outOfRange):
			message = outOfRange.Error()
		}
		r.loggerFor(ctx).InfoContext(ctx, "request failed", "status", rule.status, "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, rule.status, errorResponse{ErrorCode: rule.code, Message: message})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", http.StatusInternalServerError, "error", err, "error_kind", application.ErrorKind(err))
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"})
}

// requireCapability writes 403 and reports false when principal lacks c.
func (r responder) requireCapability(ctx context.Context, w http.ResponseWriter, principal application.Principal, c application.Capability) bool {
	if principal.Can(c) {
		return true
	}
	r.handleServiceError(ctx, w, application.ErrForbidden)
	return false
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
