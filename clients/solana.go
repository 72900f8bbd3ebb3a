package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/wipecheck/wipecheck/types"
	"github.com/wipecheck/wipecheck/utils"
)

// SolanaClient verifies native SOL transfers by comparing the
// recipient's pre/post balances of the referenced transaction.
type SolanaClient struct {
	network types.Network
	rpcURL  string
	client  *rpc.Client
}

var _ Client = (*SolanaClient)(nil)

// NewSolanaClient creates a client for a Solana network.
func NewSolanaClient(network types.Network, rpcURL string) (*SolanaClient, error) {
	if !network.IsSolana() {
		return nil, fmt.Errorf("network %s is not a Solana network", network)
	}

	return &SolanaClient{
		network: network,
		rpcURL:  rpcURL,
		client:  rpc.New(rpcURL),
	}, nil
}

// VerifyPayment loads the finalized transaction for the signature and
// checks that the expected recipient's balance grew by at least the
// quoted amount in lamports.
func (c *SolanaClient) VerifyPayment(
	ctx context.Context,
	txRef string,
	expected types.PaymentTerms,
) (*types.VerificationResult, error) {
	sig, err := solana.SignatureFromBase58(txRef)
	if err != nil {
		return invalid(fmt.Sprintf("invalid transaction signature: %v", err)), nil
	}

	out, err := c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentFinalized,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return invalid("transaction not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if out.Meta == nil {
		return invalid("transaction metadata unavailable"), nil
	}
	if out.Meta.Err != nil {
		return invalid("transaction failed on-chain"), nil
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	recipient, err := solana.PublicKeyFromBase58(expected.Recipient)
	if err != nil {
		return invalid(fmt.Sprintf("invalid expected recipient address: %v", err)), nil
	}

	idx := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(recipient) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return invalid("recipient not referenced by transaction"), nil
	}

	if idx >= len(out.Meta.PreBalances) || idx >= len(out.Meta.PostBalances) {
		return invalid("transaction balance metadata incomplete"), nil
	}

	pre := new(big.Int).SetUint64(out.Meta.PreBalances[idx])
	post := new(big.Int).SetUint64(out.Meta.PostBalances[idx])
	delta := new(big.Int).Sub(post, pre)

	wantLamports := utils.ToAtomicUnits(expected.Amount, c.network).BigInt()
	if delta.Cmp(wantLamports) < 0 {
		return invalid(fmt.Sprintf("insufficient amount: recipient received %s lamports, expected %s", delta, wantLamports)), nil
	}

	sender := ""
	if len(tx.Message.AccountKeys) > 0 {
		sender = tx.Message.AccountKeys[0].String()
	}

	result := &types.VerificationResult{
		Valid:         true,
		Amount:        expected.Amount.String(),
		Recipient:     expected.Recipient,
		Sender:        sender,
		Confirmations: 1, // finalized commitment
	}
	if out.BlockTime != nil {
		t := out.BlockTime.Time()
		result.Timestamp = &t
	}
	return result, nil
}

func (c *SolanaClient) Network() types.Network {
	return c.network
}

func (c *SolanaClient) Close() {}
