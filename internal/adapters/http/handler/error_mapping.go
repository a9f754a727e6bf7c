package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
	"github.com/ogurasousui/employee-roster/internal/platform/logging"
)

const internalErrorMessage = "internal server error"

// requestError はリクエスト自体の不備を表し、400 として返します。
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

var (
	errInvalidBody = &requestError{msg: "request body must be a JSON object"}
	errMissingFile = &requestError{msg: "file is required"}
)

type errorResponse struct {
	Error string `json:"error"`
}

func toHTTPStatus(err error) (int, string) {
	var (
		reqErr  *requestError
		sizeErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", sizeErr.Limit)
	case errors.As(err, &reqErr),
		errors.Is(err, employee.ErrValidation),
		errors.Is(err, employee.ErrFileFormat),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrEmailAlreadyExists):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := toHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
