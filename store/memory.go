package store

import (
	"context"
	"sync"
	"time"

	"github.com/wipecheck/wipecheck/types"
)

const (
	// DefaultTTL bounds how long an unpaid challenge is kept.
	DefaultTTL = time.Hour

	janitorInterval = time.Minute
)

// MemoryStore is a mutex-guarded in-memory Store. Unpaid challenges
// decay after the TTL and then behave as if never issued; paid and
// redeemed records are retained for the process lifetime.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*types.Challenge

	ttl    time.Duration
	now    func() time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore with a background janitor that
// prunes expired unpaid challenges. ttl <= 0 selects DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &MemoryStore{
		data:   make(map[string]*types.Challenge),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.janitor()
	return s
}

// SetClock overrides the time source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Create(_ context.Context, ch *types.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[ch.ID]; ok && !s.expired(existing) {
		return ErrExists
	}

	cp := *ch
	s.data[ch.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.data[id]
	if !ok || s.expired(ch) {
		return nil, ErrNotFound
	}

	return clone(ch), nil
}

func (s *MemoryStore) MarkPaid(_ context.Context, id, txRef string) (*types.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.data[id]
	if !ok || s.expired(ch) {
		return nil, ErrNotFound
	}

	// Idempotent: duplicate payment callbacks are a no-op success.
	if ch.State.Settled() {
		return clone(ch), nil
	}

	now := s.now()
	ch.State = types.StatePaid
	ch.TxRef = txRef
	ch.PaidAt = &now
	return clone(ch), nil
}

func (s *MemoryStore) MarkRedeemed(_ context.Context, id string) (*types.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.data[id]
	if !ok || s.expired(ch) {
		return nil, ErrNotFound
	}

	switch ch.State {
	case types.StateCreated:
		return nil, ErrNotPaid
	case types.StateRedeemed:
		return nil, ErrAlreadyRedeemed
	}

	now := s.now()
	ch.State = types.StateRedeemed
	ch.RedeemedAt = &now
	return clone(ch), nil
}

func (s *MemoryStore) Close() {
	close(s.stopCh)
	s.wg.Wait()
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ch := range s.data {
		if !s.expired(ch) {
			n++
		}
	}
	return n
}

// expired applies only to unpaid challenges. Callers hold the lock.
func (s *MemoryStore) expired(ch *types.Challenge) bool {
	return ch.State == types.StateCreated && s.now().Sub(ch.CreatedAt) > s.ttl
}

func (s *MemoryStore) janitor() {
	defer s.wg.Done()

	t := time.NewTicker(janitorInterval)
	defer t.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.prune()
		}
	}
}

func (s *MemoryStore) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.data {
		if s.expired(ch) {
			delete(s.data, id)
		}
	}
}

func clone(ch *types.Challenge) *types.Challenge {
	cp := *ch
	if ch.PaidAt != nil {
		t := *ch.PaidAt
		cp.PaidAt = &t
	}
	if ch.RedeemedAt != nil {
		t := *ch.RedeemedAt
		cp.RedeemedAt = &t
	}
	return &cp
}
