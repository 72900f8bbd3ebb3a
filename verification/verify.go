// Package verification routes payment verification to the client
// configured for the quoted network.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/wipecheck/wipecheck/clients"
	"github.com/wipecheck/wipecheck/types"
	"github.com/wipecheck/wipecheck/utils"
)

// Service manages payment verification across networks. It satisfies
// the recorder's Verifier contract.
type Service struct {
	evmClients    map[types.Network]*clients.EVMClient
	solanaClients map[types.Network]*clients.SolanaClient
	timeout       time.Duration
}

// NewService creates a verification service with the given per-call
// timeout.
func NewService(timeout time.Duration) *Service {
	return &Service{
		evmClients:    make(map[types.Network]*clients.EVMClient),
		solanaClients: make(map[types.Network]*clients.SolanaClient),
		timeout:       timeout,
	}
}

// AddEVMClient registers an EVM client for its network.
func (s *Service) AddEVMClient(network types.Network, client *clients.EVMClient) error {
	if !network.IsEVM() {
		return fmt.Errorf("network %s is not an EVM network", network)
	}

	s.evmClients[network] = client
	return nil
}

// AddSolanaClient registers a Solana client for its network.
func (s *Service) AddSolanaClient(network types.Network, client *clients.SolanaClient) error {
	if !network.IsSolana() {
		return fmt.Errorf("network %s is not a Solana network", network)
	}

	s.solanaClients[network] = client
	return nil
}

// Verify checks a claimed transaction against the quoted terms. Format
// problems and definite mismatches come back as an invalid result with
// a reason; RPC faults and timeouts come back as an error.
func (s *Service) Verify(
	ctx context.Context,
	txRef string,
	expected types.PaymentTerms,
) (*types.VerificationResult, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if quick := s.QuickVerify(txRef, expected); !quick.Valid {
		return quick, nil
	}

	network := types.Network(expected.Network)

	switch {
	case network.IsEVM():
		client, exists := s.evmClients[network]
		if !exists {
			return invalidResult(fmt.Sprintf("no EVM client configured for network %s", network)), nil
		}
		return client.VerifyPayment(verifyCtx, txRef, expected)

	case network.IsSolana():
		client, exists := s.solanaClients[network]
		if !exists {
			return invalidResult(fmt.Sprintf("no Solana client configured for network %s", network)), nil
		}
		return client.VerifyPayment(verifyCtx, txRef, expected)

	default:
		return invalidResult(fmt.Sprintf("unsupported network: %s", network)), nil
	}
}

// QuickVerify performs format-only checks without touching the chain.
// Useful as a cheap precheck before an RPC round trip.
func (s *Service) QuickVerify(txRef string, expected types.PaymentTerms) *types.VerificationResult {
	if err := expected.Validate(); err != nil {
		return invalidResult(fmt.Sprintf("invalid terms: %v", err))
	}

	network := types.Network(expected.Network)

	if err := utils.ValidateTransactionRef(txRef, network); err != nil {
		return invalidResult(fmt.Sprintf("invalid transaction reference: %v", err))
	}

	if err := utils.ValidateAddressForNetwork(expected.Recipient, network); err != nil {
		return invalidResult(fmt.Sprintf("invalid recipient address: %v", err))
	}

	return &types.VerificationResult{Valid: true}
}

// SupportedNetworks lists the networks with a configured client.
func (s *Service) SupportedNetworks() []types.Network {
	var networks []types.Network

	for network := range s.evmClients {
		networks = append(networks, network)
	}

	for network := range s.solanaClients {
		networks = append(networks, network)
	}

	return networks
}

// IsNetworkSupported reports whether a client is configured for the
// network.
func (s *Service) IsNetworkSupported(network types.Network) bool {
	if network.IsEVM() {
		_, exists := s.evmClients[network]
		return exists
	}

	if network.IsSolana() {
		_, exists := s.solanaClients[network]
		return exists
	}

	return false
}

// Close closes all client connections.
func (s *Service) Close() {
	for _, client := range s.evmClients {
		client.Close()
	}

	for _, client := range s.solanaClients {
		client.Close()
	}
}

func invalidResult(reason string) *types.VerificationResult {
	return &types.VerificationResult{
		Valid:         false,
		InvalidReason: reason,
	}
}
