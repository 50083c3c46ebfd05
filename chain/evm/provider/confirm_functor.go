package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
)

// DefaultConfirmTimeout bounds a single transaction wait when no timeout is configured.
const DefaultConfirmTimeout = 5 * time.Minute

// ErrConfirmTimeout is returned when a transaction is not mined within the confirm timeout.
var ErrConfirmTimeout = errors.New("timed out waiting for transaction receipt")

// ConfirmFunctor creates the confirmation function of a network.
type ConfirmFunctor interface {
	// Generate returns a function that waits for transactions sent by from on the network.
	Generate(
		ctx context.Context, network string, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the node for the receipt until it is
// mined or waitMinedTimeout elapses.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	if waitMinedTimeout <= 0 {
		waitMinedTimeout = DefaultConfirmTimeout
	}

	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

func (g *confirmFuncGeth) Generate(
	ctx context.Context, network string, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm on %s", network)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s: %w", ErrConfirmTimeout, g.waitMinedTimeout, err)
			}

			return 0, fmt.Errorf("tx %s failed to confirm on %s: %w", tx.Hash().Hex(), network, err)
		}

		return checkReceipt(ctxTimeout, network, client, from, tx, receipt)
	}, nil
}

// checkReceipt returns the block number of a successful receipt, or an error carrying the
// revert reason when the node can replay the call.
func checkReceipt(
	ctx context.Context, network string, caller ContractCaller, from common.Address,
	tx *types.Transaction, receipt *types.Receipt,
) (uint64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("receipt was nil for tx %s on %s", tx.Hash().Hex(), network)
	}

	blockNum := receipt.BlockNumber.Uint64()
	if receipt.Status == types.ReceiptStatusSuccessful {
		return blockNum, nil
	}

	reason, err := revertReason(ctx, caller, from, tx, receipt)
	if err == nil && reason != "" {
		return blockNum, fmt.Errorf("tx %s reverted on %s: %s", tx.Hash().Hex(), network, reason)
	}

	return blockNum, fmt.Errorf("tx %s reverted on %s, could not decode error reason", tx.Hash().Hex(), network)
}

// WaitMinedWithInterval polls for the receipt of txHash every tick, which gets receipts faster
// than bind.WaitMined on networks with short block times.
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}
