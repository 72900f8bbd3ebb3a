package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/wipecheck/wipecheck/types"
)

var (
	hexRe    = regexp.MustCompile("^[0-9a-fA-F]+$")
	base58Re = regexp.MustCompile("^[1-9A-HJ-NP-Za-km-z]+$")
)

// ValidateAmount checks that an amount string is a positive decimal.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateTransactionRef checks the format of a transaction reference
// for the given network without touching the chain.
func ValidateTransactionRef(ref string, network types.Network) error {
	if ref == "" {
		return fmt.Errorf("transaction reference cannot be empty")
	}

	switch {
	case network.IsEVM():
		// 0x + 64 hex chars
		if len(ref) != 66 || ref[:2] != "0x" {
			return fmt.Errorf("EVM transaction hash must be 0x-prefixed and 66 characters long")
		}
		if !hexRe.MatchString(ref[2:]) {
			return fmt.Errorf("EVM transaction hash must be valid hex")
		}

	case network.IsSolana():
		// base58 signature, typically 87-88 characters
		if len(ref) < 80 || len(ref) > 90 {
			return fmt.Errorf("Solana transaction signature has invalid length")
		}
		if !base58Re.MatchString(ref) {
			return fmt.Errorf("Solana transaction signature must be valid base58")
		}

	default:
		return fmt.Errorf("unsupported network %q for transaction reference validation", network)
	}

	return nil
}

// ValidateAddressForNetwork checks an address's format for the given
// network.
func ValidateAddressForNetwork(address string, network types.Network) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch {
	case network.IsEVM():
		if len(address) != 42 || address[:2] != "0x" {
			return fmt.Errorf("EVM address must be 0x-prefixed and 42 characters long")
		}
		if !hexRe.MatchString(address[2:]) {
			return fmt.Errorf("EVM address must be valid hex")
		}

	case network.IsSolana():
		if len(address) < 32 || len(address) > 44 {
			return fmt.Errorf("Solana address has invalid length")
		}
		if !base58Re.MatchString(address) {
			return fmt.Errorf("Solana address must be valid base58")
		}

	default:
		return fmt.Errorf("unsupported network %q for address validation", network)
	}

	return nil
}

// ToAtomicUnits converts a whole-unit amount to the network's atomic
// integer representation (lamports / wei).
func ToAtomicUnits(amount decimal.Decimal, network types.Network) decimal.Decimal {
	return amount.Shift(network.NativeDecimals())
}
