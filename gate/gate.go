// Package gate enforces payment before releasing the report.
package gate

import (
	"context"
	"errors"

	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/report"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
)

// Gate releases the artifact for paid challenges only. State is always
// read from the store at call time so a concurrently recorded payment
// is observed.
type Gate struct {
	store     store.Store
	generator report.Generator
	singleUse bool
	log       logger.Logger
}

func New(st store.Store, gen report.Generator, singleUse bool, log logger.Logger) *Gate {
	if log == nil {
		log = logger.NoopLogger{}
	}

	return &Gate{
		store:     st,
		generator: gen,
		singleUse: singleUse,
		log:       log,
	}
}

// Redeem exchanges a paid challenge for its report. Before payment it
// fails with PAYMENT_REQUIRED carrying the originally quoted terms so
// the client sees consistent terms on every retry. With the single-use
// policy a second redemption fails with ALREADY_REDEEMED.
func (g *Gate) Redeem(ctx context.Context, id string) (*types.Report, error) {
	if id == "" {
		return nil, &types.Error{
			Code:    types.ErrBadRequest,
			Message: "checkId required",
		}
	}

	if g.singleUse {
		return g.redeemOnce(ctx, id)
	}

	ch, err := g.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, internal()
	}

	if !ch.State.Settled() {
		return nil, paymentRequired(ch)
	}

	return g.generator.Generate(ch.Submission), nil
}

func (g *Gate) redeemOnce(ctx context.Context, id string) (*types.Report, error) {
	ch, err := g.store.MarkRedeemed(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, notFound()
	case errors.Is(err, store.ErrNotPaid):
		// Re-read for the quoted terms; the record may expire between
		// the two calls, which is still NOT_FOUND.
		unpaid, getErr := g.store.Get(ctx, id)
		if getErr != nil {
			return nil, notFound()
		}
		return nil, paymentRequired(unpaid)
	case errors.Is(err, store.ErrAlreadyRedeemed):
		return nil, &types.Error{
			Code:    types.ErrAlreadyRedeemed,
			Message: "report already redeemed",
		}
	case err != nil:
		return nil, internal()
	}

	g.log.Info("report redeemed", map[string]any{"checkId": id})
	return g.generator.Generate(ch.Submission), nil
}

func notFound() *types.Error {
	return &types.Error{
		Code:    types.ErrNotFound,
		Message: "unknown checkId",
	}
}

func internal() *types.Error {
	return &types.Error{
		Code:    types.ErrInternal,
		Message: "failed to load challenge",
	}
}

// paymentRequired carries the stored 402 payload so the server can
// re-serve the exact terms quoted at issuance.
func paymentRequired(ch *types.Challenge) *types.Error {
	return &types.Error{
		Code:    types.ErrPaymentRequired,
		Message: "payment required before the report is released",
		Data:    types.NewPaymentChallenge(ch.ID, ch.Terms),
	}
}
