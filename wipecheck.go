// Package wipecheck gates a computed profile-trust report behind an
// x402 micropayment checkpoint: submissions are priced at issuance,
// paid out-of-band on a blockchain network, and redeemed for the
// report once payment is recorded.
package wipecheck

import (
	"context"
	"time"

	"github.com/wipecheck/wipecheck/forward"
	"github.com/wipecheck/wipecheck/gate"
	"github.com/wipecheck/wipecheck/issuer"
	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/metrics"
	"github.com/wipecheck/wipecheck/recorder"
	"github.com/wipecheck/wipecheck/report"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
)

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)

// Service wires the challenge lifecycle components around a single
// store instance. All state lives in the store; the service itself
// holds no cross-request mutable state.
type Service struct {
	store     store.Store
	issuer    *issuer.Issuer
	recorder  *recorder.Recorder
	gate      *gate.Gate
	forwarder *forward.Forwarder

	log       logger.Logger
	metrics   metrics.Recorder
	verifier  recorder.Verifier
	generator report.Generator
	singleUse bool
	timeout   time.Duration
}

// New builds a Service over the given store and pricing terms. Without
// options it trusts payment claims (the reference behavior) and allows
// unlimited re-reads of a paid report.
func New(st store.Store, terms types.PaymentTerms, opts ...Option) (*Service, error) {
	s := &Service{
		store:     st,
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		generator: report.NewHeuristicGenerator(),
		timeout:   forward.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	iss, err := issuer.New(st, terms, s.log)
	if err != nil {
		return nil, err
	}

	s.issuer = iss
	s.recorder = recorder.New(st, s.verifier, s.log)
	s.gate = gate.New(st, s.generator, s.singleUse, s.log)
	s.forwarder = forward.New(s.timeout, s.log)
	return s, nil
}

// Issue validates a submission and returns its payment challenge.
func (s *Service) Issue(ctx context.Context, sub types.Submission) (*types.PaymentChallenge, error) {
	defer s.observe("issue", time.Now())

	pc, err := s.issuer.Issue(ctx, sub)
	s.count("issue", err)
	return pc, err
}

// RecordPayment marks a challenge paid, verifying the transaction
// reference first when a verifier is configured.
func (s *Service) RecordPayment(ctx context.Context, checkID, txRef string) (*types.Challenge, error) {
	defer s.observe("record_payment", time.Now())

	ch, err := s.recorder.Record(ctx, checkID, txRef)
	s.count("record_payment", err)
	return ch, err
}

// Redeem exchanges a paid challenge for its report.
func (s *Service) Redeem(ctx context.Context, checkID string) (*types.Report, error) {
	defer s.observe("redeem", time.Now())

	rep, err := s.gate.Redeem(ctx, checkID)
	s.count("redeem", err)
	return rep, err
}

// Forward relays a payment-initiation request to an upstream processor
// without touching challenge state.
func (s *Service) Forward(ctx context.Context, req *types.ForwardRequest) (*types.ForwardResult, error) {
	defer s.observe("forward", time.Now())

	res, err := s.forwarder.Forward(ctx, req)
	s.count("forward", err)
	return res, err
}

// Close releases the store and any verifier connections.
func (s *Service) Close() {
	s.store.Close()

	if closer, ok := s.verifier.(interface{ Close() }); ok {
		closer.Close()
	}
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveLatency(op, time.Since(start), nil)
}

func (s *Service) count(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = types.CodeOf(err)
	}
	s.metrics.IncCounter(op, map[string]string{"outcome": outcome})
}
