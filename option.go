package wipecheck

import (
	"time"

	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/metrics"
	"github.com/wipecheck/wipecheck/recorder"
	"github.com/wipecheck/wipecheck/report"
)

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithVerifier enables on-chain payment verification; without it the
// service trusts payment claims like the original implementation.
func WithVerifier(v recorder.Verifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

// WithGenerator swaps the report generator.
func WithGenerator(g report.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithSingleUse makes redemption single-use: the first redeem settles
// the challenge and later attempts are rejected.
func WithSingleUse() Option {
	return func(s *Service) {
		s.singleUse = true
	}
}

// WithForwardTimeout bounds the forwarder's upstream call.
func WithForwardTimeout(t time.Duration) Option {
	return func(s *Service) {
		s.timeout = t
	}
}
