// Package clients provides blockchain lookup clients used to verify
// that a claimed payment transaction actually moved the quoted amount
// to the quoted recipient.
package clients

import (
	"context"

	"github.com/wipecheck/wipecheck/types"
)

// Client verifies a settled transaction reference against quoted terms.
type Client interface {
	VerifyPayment(ctx context.Context, txRef string, expected types.PaymentTerms) (*types.VerificationResult, error)
	Network() types.Network
	Close()
}
