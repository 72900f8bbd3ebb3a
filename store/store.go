// Package store owns all challenge records. Every state read and
// transition goes through a Store; no component keeps its own copy.
package store

import (
	"context"
	"errors"

	"github.com/wipecheck/wipecheck/types"
)

var (
	// ErrNotFound is returned for ids that were never issued or have
	// expired unpaid.
	ErrNotFound = errors.New("challenge not found")

	// ErrExists is returned when creating an id that is already taken.
	ErrExists = errors.New("challenge already exists")

	// ErrNotPaid is returned when redeeming a challenge still in the
	// created state.
	ErrNotPaid = errors.New("challenge not paid")

	// ErrAlreadyRedeemed is returned by MarkRedeemed for a challenge
	// that has already been redeemed.
	ErrAlreadyRedeemed = errors.New("challenge already redeemed")
)

// Store is the durable record of challenges and their payment state.
// Implementations must make each per-id read-modify operation atomic so
// a payment callback and a redemption poll never observe a torn state.
type Store interface {
	// Create persists a new challenge in the created state. Fails with
	// ErrExists if the id is taken.
	Create(ctx context.Context, ch *types.Challenge) error

	// Get returns a copy of the challenge, or ErrNotFound.
	Get(ctx context.Context, id string) (*types.Challenge, error)

	// MarkPaid transitions created -> paid and records the transaction
	// reference. Recording payment for an already paid or redeemed
	// challenge is a no-op success. Unknown ids fail with ErrNotFound
	// and are never implicitly created.
	MarkPaid(ctx context.Context, id, txRef string) (*types.Challenge, error)

	// MarkRedeemed transitions paid -> redeemed. Fails with ErrNotPaid
	// for created challenges and ErrAlreadyRedeemed for redeemed ones.
	MarkRedeemed(ctx context.Context, id string) (*types.Challenge, error)

	// Close releases any background resources.
	Close()
}
