// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wipecheck/wipecheck/types"
)

const AppName = "wipecheck"

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string

	// Pricing policy quoted on every issued challenge.
	Terms types.PaymentTerms

	ChallengeTTL   time.Duration
	ForwardTimeout time.Duration
	SingleUse      bool

	// On-chain verification. When disabled, payment claims are trusted
	// as in the original implementation.
	VerifyPayments bool
	SolanaRPCURL   string
	EVMRPCURL      string
}

// Load reads and validates the environment. The recipient address is
// the only required variable; everything else has a sane default.
func Load() (*Config, error) {
	recipient := os.Getenv("PRICE_RECIPIENT")
	if recipient == "" {
		return nil, fmt.Errorf("PRICE_RECIPIENT env var is missing")
	}

	amount, err := decimal.NewFromString(envOr("PRICE_AMOUNT", "0.01"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_AMOUNT: %w", err)
	}

	terms := types.PaymentTerms{
		Amount:    amount,
		Token:     envOr("PRICE_TOKEN", "SOL"),
		Network:   envOr("PRICE_NETWORK", string(types.NetworkSolanaDevnet)),
		Recipient: recipient,
	}
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing policy: %w", err)
	}

	ttl, err := durationOr("CHALLENGE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	forwardTimeout, err := durationOr("FORWARD_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           envOr("APP_PORT", "8080"),
		AllowedOrigin:  envOr("ALLOWED_ORIGIN", "*"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		Terms:          terms,
		ChallengeTTL:   ttl,
		ForwardTimeout: forwardTimeout,
		SingleUse:      boolOr("SINGLE_USE_REDEMPTION", false),
		VerifyPayments: boolOr("VERIFY_PAYMENTS", false),
		SolanaRPCURL:   os.Getenv("SOLANA_RPC_URL"),
		EVMRPCURL:      os.Getenv("EVM_RPC_URL"),
	}

	if cfg.VerifyPayments {
		network := types.Network(cfg.Terms.Network)
		if network.IsSolana() && cfg.SolanaRPCURL == "" {
			return nil, fmt.Errorf("VERIFY_PAYMENTS is set but SOLANA_RPC_URL is missing")
		}
		if network.IsEVM() && cfg.EVMRPCURL == "" {
			return nil, fmt.Errorf("VERIFY_PAYMENTS is set but EVM_RPC_URL is missing")
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
