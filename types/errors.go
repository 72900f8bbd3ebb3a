package types

import "errors"

// Error is the structured error surfaced by every component. Code is a
// stable machine-readable string; Data carries optional diagnostics
// (e.g. the upstream body on a forwarder rejection).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrNotFound           = "NOT_FOUND"
	ErrPaymentRequired    = "PAYMENT_REQUIRED"
	ErrPaymentNotVerified = "PAYMENT_NOT_VERIFIED"
	ErrAlreadyRedeemed    = "ALREADY_REDEEMED"
	ErrUpstreamPayment    = "UPSTREAM_PAYMENT_FAILED"
	ErrInternal           = "INTERNAL_ERROR"
)

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the error code, defaulting to ErrInternal for
// anything that is not a *types.Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// IsCode reports whether err is a *types.Error with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
