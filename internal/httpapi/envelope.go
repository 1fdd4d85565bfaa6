package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/docsmith/docsmith/internal/apperr"
)

// successEnvelope is the HTTP-surface twin of dispatch.SuccessEnvelope.
type successEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// errorEnvelope is the HTTP-surface twin of dispatch.ErrorEnvelope.
type errorEnvelope struct {
	Status           string         `json:"status"`
	ErrorCode        apperr.Code    `json:"error_code"`
	Message          string         `json:"message"`
	RecoveryStrategy string         `json:"recovery_strategy"`
	Details          map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successEnvelope{Status: "success", Data: data})
}

func writeSuccessMessage(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, successEnvelope{Status: "success", Data: data, Message: message})
}

// writeError renders err as the closed error envelope, picking an HTTP
// status from its apperr.Code. Any non-*apperr.Error is wrapped as
// UnexpectedError first, same as dispatch.errorResult.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.As(err)
	writeJSON(w, httpStatusForCode(appErr.Code), errorEnvelope{
		Status:           "error",
		ErrorCode:        appErr.Code,
		Message:          appErr.Message,
		RecoveryStrategy: appErr.Recovery,
		Details:          appErr.Details,
	})
}

func httpStatusForCode(code apperr.Code) int {
	switch code {
	case apperr.AuthRequired, apperr.AuthFailed:
		return http.StatusUnauthorized
	case apperr.AccessDenied:
		return http.StatusForbidden
	case apperr.SessionNotFound, apperr.TemplateNotFound, apperr.FragmentNotFound, apperr.ImageNotFound:
		return http.StatusNotFound
	case apperr.UnexpectedError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
