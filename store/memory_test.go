package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wipecheck/wipecheck/types"
)

func testTerms() types.PaymentTerms {
	return types.PaymentTerms{
		Amount:    decimal.RequireFromString("0.01"),
		Token:     "SOL",
		Network:   string(types.NetworkSolanaDevnet),
		Recipient: "4Nd1mYQJkSmRsCqbNkYjzSzQnYt5DXiUETXggkfvFmMj",
	}
}

func newChallenge(id string) *types.Challenge {
	return &types.Challenge{
		ID:         id,
		Submission: types.Submission{Name: "Riya", Platform: "tinder"},
		State:      types.StateCreated,
		Terms:      testTerms(),
		CreatedAt:  time.Now(),
	}
}

func TestCreateAndGet(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	ch, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", ch.ID)
	require.Equal(t, types.StateCreated, ch.State)

	require.ErrorIs(t, s.Create(ctx, newChallenge("abc")), ErrExists)
}

func TestGetUnknownID(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	_, err := s.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	ch, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	ch.State = types.StatePaid // mutating the copy must not leak

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, types.StateCreated, again.State)
}

func TestMarkPaid(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	ch, err := s.MarkPaid(ctx, "abc", "sig123")
	require.NoError(t, err)
	require.Equal(t, types.StatePaid, ch.State)
	require.Equal(t, "sig123", ch.TxRef)
	require.NotNil(t, ch.PaidAt)
}

func TestMarkPaidUnknownIDNeverCreates(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	_, err := s.MarkPaid(ctx, "forged", "sig")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "forged")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaidIdempotent(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	first, err := s.MarkPaid(ctx, "abc", "sig1")
	require.NoError(t, err)

	// The duplicate succeeds and does not overwrite the original record.
	second, err := s.MarkPaid(ctx, "abc", "sig2")
	require.NoError(t, err)
	require.Equal(t, types.StatePaid, second.State)
	require.Equal(t, "sig1", second.TxRef)
	require.Equal(t, first.PaidAt.Unix(), second.PaidAt.Unix())
}

func TestStateNeverRevertsFromPaid(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))
	_, err := s.MarkPaid(ctx, "abc", "sig")
	require.NoError(t, err)

	_, err = s.MarkPaid(ctx, "abc", "other")
	require.NoError(t, err)

	ch, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ch.State.Settled())
}

func TestIsolationAcrossIDs(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("a")))
	require.NoError(t, s.Create(ctx, newChallenge("b")))

	_, err := s.MarkPaid(ctx, "a", "sig")
	require.NoError(t, err)

	b, err := s.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, types.StateCreated, b.State)
}

func TestMarkRedeemed(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	_, err := s.MarkRedeemed(ctx, "abc")
	require.ErrorIs(t, err, ErrNotPaid)

	_, err = s.MarkPaid(ctx, "abc", "sig")
	require.NoError(t, err)

	ch, err := s.MarkRedeemed(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, types.StateRedeemed, ch.State)
	require.NotNil(t, ch.RedeemedAt)

	_, err = s.MarkRedeemed(ctx, "abc")
	require.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestUnpaidChallengeExpires(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	base := time.Now()
	s.SetClock(func() time.Time { return base })

	ch := newChallenge("abc")
	ch.CreatedAt = base
	require.NoError(t, s.Create(ctx, ch))

	paid := newChallenge("def")
	paid.CreatedAt = base
	require.NoError(t, s.Create(ctx, paid))
	_, err := s.MarkPaid(ctx, "def", "sig")
	require.NoError(t, err)

	s.SetClock(func() time.Time { return base.Add(2 * time.Minute) })

	// Expired unpaid id behaves as never issued, for every operation.
	_, err = s.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.MarkPaid(ctx, "abc", "sig")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.MarkRedeemed(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)

	// Paid records are retained.
	kept, err := s.Get(ctx, "def")
	require.NoError(t, err)
	require.Equal(t, types.StatePaid, kept.State)
}

func TestPruneRemovesExpired(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	base := time.Now()
	s.SetClock(func() time.Time { return base })

	ch := newChallenge("abc")
	ch.CreatedAt = base
	require.NoError(t, s.Create(ctx, ch))
	require.Equal(t, 1, s.Len())

	s.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	s.prune()
	require.Equal(t, 0, s.Len())
}

func TestConcurrentPayAndRead(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newChallenge("abc")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.MarkPaid(ctx, "abc", "sig")
			require.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			ch, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			// Never a torn intermediate value.
			require.Contains(t, []types.ChallengeState{types.StateCreated, types.StatePaid}, ch.State)
		}()
	}
	wg.Wait()

	ch, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, types.StatePaid, ch.State)
}
