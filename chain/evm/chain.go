// Package evm defines the EVM chain handle shared by the deployer, the enrollment coordinator
// and the message dispatcher.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmFunc is a function that takes a transaction, waits for the transaction to be confirmed,
// and returns the block number and an error.
type ConfirmFunc func(tx *types.Transaction) (uint64, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain is a connection to one network together with the signer used on it. A Chain is owned by
// a single network pipeline and is never shared across networks.
type Chain struct {
	// Network is the registry name of the network.
	Network string
	// ChainID is the EVM chain id, which is also the message domain of the network.
	ChainID uint32
	// Selector is the chain-selectors selector, zero when the chain id is unknown to it.
	Selector uint64

	Client OnchainClient
	// Note the Sign function can be abstract supporting a variety of key storage mechanisms (e.g. KMS etc).
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc

	// SignHash allows signing of arbitrary hashes using the deployer key's signing mechanism.
	SignHash func([]byte) ([]byte, error)
}

// Domain returns the message domain of the chain.
func (c Chain) Domain() uint32 {
	return c.ChainID
}

// String returns "<network> (<chain id>)".
func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Network, c.ChainID)
}

// CallOpts returns read options bound to ctx and the deployer address.
func (c Chain) CallOpts(ctx context.Context) *bind.CallOpts {
	opts := &bind.CallOpts{Context: ctx}
	if c.DeployerKey != nil {
		opts.From = c.DeployerKey.From
	}

	return opts
}

// TransactOpts returns a copy of the deployer key bound to ctx. The copy lets callers set a
// value on a single transaction without mutating the shared key.
func (c Chain) TransactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.DeployerKey
	opts.Context = ctx

	return &opts
}
