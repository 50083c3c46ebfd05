package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
)

// errTxPending is returned by MinedTransaction for a transaction that is not in a block yet.
var errTxPending = errors.New("transaction is still pending")

// SimClient is the client of a simulated chain. It satisfies evm.OnchainClient and lets tests
// seal blocks and inspect what was mined.
type SimClient struct {
	simulated.Client

	mu  sync.Mutex
	sim *simulated.Backend
}

// NewSimClient creates a SimClient for the backend.
func NewSimClient(t *testing.T, sim *simulated.Backend) *SimClient {
	t.Helper()

	require.NotNil(t, sim, "simulated backend must not be nil")

	return &SimClient{
		Client: sim.Client(),
		sim:    sim,
	}
}

// Commit seals the pending transactions into a new block and returns its hash.
func (c *SimClient) Commit() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sim.Commit()
}

// MinedTransaction returns a mined transaction with its receipt, so tests can check the value
// and calldata a client sent along with the outcome.
func (c *SimClient) MinedTransaction(
	ctx context.Context, hash common.Hash,
) (*types.Transaction, *types.Receipt, error) {
	tx, pending, err := c.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
	}
	if pending {
		return nil, nil, fmt.Errorf("transaction %s: %w", hash.Hex(), errTxPending)
	}

	receipt, err := c.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("receipt of %s: %w", hash.Hex(), err)
	}

	return tx, receipt, nil
}
