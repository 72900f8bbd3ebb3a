package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/wipecheck/wipecheck/types"
	"github.com/wipecheck/wipecheck/utils"
)

// EVMClient verifies native-asset transfers on EVM networks by loading
// the transaction and its receipt. Token-contract transfers are not
// covered.
type EVMClient struct {
	network types.Network
	rpcURL  string
	client  *ethclient.Client
}

var _ Client = (*EVMClient)(nil)

// NewEVMClient dials the RPC endpoint for an EVM network.
func NewEVMClient(network types.Network, rpcURL string) (*EVMClient, error) {
	if !network.IsEVM() {
		return nil, fmt.Errorf("network %s is not an EVM network", network)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM RPC %s: %w", rpcURL, err)
	}

	return &EVMClient{
		network: network,
		rpcURL:  rpcURL,
		client:  client,
	}, nil
}

// VerifyPayment checks that the referenced transaction succeeded, paid
// the expected recipient and carried at least the expected native
// value. A definite mismatch is an invalid result; an RPC fault is an
// error so the caller never mistakes it for a rejection.
func (c *EVMClient) VerifyPayment(
	ctx context.Context,
	txRef string,
	expected types.PaymentTerms,
) (*types.VerificationResult, error) {
	hash := common.HexToHash(txRef)

	tx, pending, err := c.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return invalid("transaction not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if pending {
		return invalid("transaction not yet mined"), nil
	}

	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return invalid("transaction receipt not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return invalid("transaction reverted"), nil
	}

	to := tx.To()
	if to == nil {
		return invalid("transaction is a contract creation, not a transfer"), nil
	}
	if !strings.EqualFold(to.Hex(), expected.Recipient) {
		return invalid(fmt.Sprintf("recipient mismatch: paid %s, expected %s", to.Hex(), expected.Recipient)), nil
	}

	wantWei := utils.ToAtomicUnits(expected.Amount, c.network).BigInt()
	if tx.Value().Cmp(wantWei) < 0 {
		return invalid(fmt.Sprintf("insufficient amount: paid %s wei, expected %s wei", tx.Value(), wantWei)), nil
	}

	confirmations := 0
	if head, err := c.client.BlockNumber(ctx); err == nil && receipt.BlockNumber != nil {
		confirmations = int(head - receipt.BlockNumber.Uint64() + 1)
	}

	sender := ""
	if from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		sender = from.Hex()
	}

	now := time.Now()
	return &types.VerificationResult{
		Valid:         true,
		Amount:        expected.Amount.String(),
		Recipient:     expected.Recipient,
		Sender:        sender,
		Confirmations: confirmations,
		Timestamp:     &now,
	}, nil
}

func (c *EVMClient) Network() types.Network {
	return c.network
}

func (c *EVMClient) Close() {
	c.client.Close()
}

func invalid(reason string) *types.VerificationResult {
	return &types.VerificationResult{
		Valid:         false,
		InvalidReason: reason,
	}
}
