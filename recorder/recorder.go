// Package recorder accepts payment confirmations and transitions
// challenges to the paid state.
package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
)

// Verifier checks a claimed transaction against the quoted terms on the
// relevant network. A nil error with Valid=false is a definite
// rejection; a non-nil error means the result could not be determined.
type Verifier interface {
	Verify(ctx context.Context, txRef string, expected types.PaymentTerms) (*types.VerificationResult, error)
}

// Recorder records payments. With a Verifier it requires a passing
// on-chain check before transitioning state; without one it reproduces
// the trust-the-claim behavior of the original service.
type Recorder struct {
	store    store.Store
	verifier Verifier
	log      logger.Logger
}

func New(st store.Store, verifier Verifier, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.NoopLogger{}
	}

	return &Recorder{
		store:    st,
		verifier: verifier,
		log:      log,
	}
}

// Record marks the challenge paid. It is idempotent: repeating the call
// for an already paid or redeemed challenge succeeds without
// re-verification, since upstream providers retry callbacks.
func (r *Recorder) Record(ctx context.Context, id, txRef string) (*types.Challenge, error) {
	if id == "" {
		return nil, &types.Error{
			Code:    types.ErrBadRequest,
			Message: "checkId required",
		}
	}

	ch, err := r.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &types.Error{
			Code:    types.ErrNotFound,
			Message: "unknown checkId",
		}
	}
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInternal,
			Message: "failed to load challenge",
		}
	}

	if ch.State.Settled() {
		return ch, nil
	}

	if r.verifier != nil {
		if txRef == "" {
			return nil, &types.Error{
				Code:    types.ErrPaymentNotVerified,
				Message: "transaction reference required for verification",
			}
		}

		result, err := r.verifier.Verify(ctx, txRef, ch.Terms)
		if err != nil {
			// Could not determine the result; never treat as success.
			r.log.Error("payment verification error", map[string]any{
				"checkId": id,
				"error":   err.Error(),
			})
			return nil, &types.Error{
				Code:    types.ErrInternal,
				Message: "payment verification could not be completed",
			}
		}

		if !result.Valid {
			r.log.Warn("payment claim rejected", map[string]any{
				"checkId": id,
				"reason":  result.InvalidReason,
			})
			return nil, &types.Error{
				Code:    types.ErrPaymentNotVerified,
				Message: fmt.Sprintf("payment not verified: %s", result.InvalidReason),
			}
		}
	}

	ch, err = r.store.MarkPaid(ctx, id, txRef)
	if errors.Is(err, store.ErrNotFound) {
		// Expired between the read and the transition.
		return nil, &types.Error{
			Code:    types.ErrNotFound,
			Message: "unknown checkId",
		}
	}
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInternal,
			Message: "failed to record payment",
		}
	}

	r.log.Info("payment recorded", map[string]any{
		"checkId": id,
		"txRef":   txRef,
	})
	return ch, nil
}
