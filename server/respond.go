package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/wipecheck/wipecheck/types"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	RequestID string `json:"requestId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func newRequestID() string {
	return "req_" + uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{
		RequestID: newRequestID(),
		Code:      code,
		Message:   message,
		Details:   details,
	})
}

// statusFor maps service error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case types.ErrBadRequest:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrPaymentRequired, types.ErrPaymentNotVerified:
		return http.StatusPaymentRequired
	case types.ErrAlreadyRedeemed:
		return http.StatusGone
	case types.ErrUpstreamPayment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
