// Package issuer creates challenges and quotes payment terms.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
	"github.com/wipecheck/wipecheck/utils"
)

var validate = validator.New()

// idRetries bounds regeneration attempts when an id collides. With
// 128-bit ids a collision is effectively a broken randomness source.
const idRetries = 3

// Issuer validates submissions and persists new challenges before
// returning their 402 payload.
type Issuer struct {
	store store.Store
	terms types.PaymentTerms
	log   logger.Logger
	now   func() time.Time
}

// New builds an Issuer. The pricing terms are validated once here and
// snapshotted into every challenge unchanged.
func New(st store.Store, terms types.PaymentTerms, log logger.Logger) (*Issuer, error) {
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing terms: %w", err)
	}

	if log == nil {
		log = logger.NoopLogger{}
	}

	return &Issuer{
		store: st,
		terms: terms,
		log:   log,
		now:   time.Now,
	}, nil
}

// SetClock overrides the time source. Tests only.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue validates the submission, persists a challenge in the created
// state and returns the payment challenge payload. The record is
// durably stored before the payload is handed back, so a returned
// checkId is always known to the store.
func (i *Issuer) Issue(ctx context.Context, sub types.Submission) (*types.PaymentChallenge, error) {
	if err := validate.Struct(sub); err != nil {
		return nil, &types.Error{
			Code:    types.ErrBadRequest,
			Message: fmt.Sprintf("invalid submission: %v", err),
		}
	}

	for attempt := 0; attempt < idRetries; attempt++ {
		id, err := utils.NewChallengeID()
		if err != nil {
			return nil, &types.Error{
				Code:    types.ErrInternal,
				Message: "failed to generate challenge id",
			}
		}

		ch := &types.Challenge{
			ID:         id,
			Submission: sub,
			State:      types.StateCreated,
			Terms:      i.terms,
			CreatedAt:  i.now(),
		}

		err = i.store.Create(ctx, ch)
		if errors.Is(err, store.ErrExists) {
			i.log.Warn("challenge id collision, regenerating", map[string]any{"attempt": attempt + 1})
			continue
		}
		if err != nil {
			return nil, &types.Error{
				Code:    types.ErrInternal,
				Message: "failed to persist challenge",
			}
		}

		i.log.Info("challenge issued", map[string]any{
			"checkId": id,
			"network": ch.Terms.Network,
			"amount":  ch.Terms.Amount.String(),
		})
		return types.NewPaymentChallenge(id, ch.Terms), nil
	}

	return nil, &types.Error{
		Code:    types.ErrInternal,
		Message: "failed to allocate a unique challenge id",
	}
}
