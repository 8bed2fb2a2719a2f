// Package chain adapts the Solana JSON-RPC client to the narrow surface the
// signing pipeline and the CLI need.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/operatingdev/mintyouragent-skill/internal/signing"
)

// rejectionMarkers are node responses that mean the transaction itself was
// refused. Retrying the same bytes cannot succeed.
var rejectionMarkers = []string{
	"insufficient funds",
	"insufficient lamports",
	"Blockhash not found",
	"Transaction simulation failed",
	"custom program error",
	"AccountNotFound",
}

type Client struct {
	rpc *rpc.Client
	log slog.Logger
}

func New(rpcURL string, log slog.Logger) *Client {
	if log == nil {
		log = slog.Disabled
	}
	return &Client{rpc: rpc.New(rpcURL), log: log}
}

// LatestBlockhash fetches a finalized blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits and classifies node refusals as RejectionError so
// the pipeline stops retrying them.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		msg := err.Error()
		for _, marker := range rejectionMarkers {
			if strings.Contains(msg, marker) {
				return solana.Signature{}, &signing.RejectionError{Reason: msg}
			}
		}
		return solana.Signature{}, err
	}
	return sig, nil
}

// Balance returns the lamport balance of addr.
func (c *Client) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}

// RequestAirdrop asks a devnet faucet for lamports.
func (c *Client) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, addr, lamports, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("request airdrop: %w", err)
	}
	return sig, nil
}

var _ signing.Chain = (*Client)(nil)
