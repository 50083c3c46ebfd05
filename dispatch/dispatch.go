// Package dispatch sends a message from a client to its peer, paying the fee quoted by the
// local mailbox.
package dispatch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// DefaultMessage is the payload sent when none is given.
const DefaultMessage = "Hello World!"

// Quoter returns the fee of dispatching a message.
type Quoter interface {
	QuoteDispatch(opts *bind.CallOpts, domain uint32, recipient [32]byte, body []byte) (*big.Int, error)
}

// Sender submits the value bearing send.
type Sender interface {
	SendHelloWorld(opts *bind.TransactOpts, domain uint32, message string) (*types.Transaction, error)
}

// Deps are the dependencies of the dispatch operations.
type Deps struct {
	Chain  evm.Chain
	Quoter Quoter
	Sender Sender
}

// QuoteInput is the input of QuoteDispatchOp.
type QuoteInput struct {
	Network   string         `json:"network"`
	Mailbox   common.Address `json:"mailbox"`
	Domain    uint32         `json:"domain"`
	Recipient common.Address `json:"recipient"`
	Body      hexutil.Bytes  `json:"body"`
}

// QuoteDispatchOp reads the dispatch fee from the mailbox. It sends no transaction.
var QuoteDispatchOp = operations.NewOperation(
	"mailbox-quote-dispatch",
	semver.MustParse("1.0.0"),
	"Quotes the mailbox fee of dispatching a message",
	func(b operations.Bundle, deps Deps, in QuoteInput) (*hexutil.Big, error) {
		fee, err := deps.Quoter.QuoteDispatch(deps.Chain.CallOpts(b.GetContext()), in.Domain,
			evm.AddressToBytes32(in.Recipient), in.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: quoteDispatch(%d, %s) on %s mailbox %s: %w",
				deployment.ErrQuote, in.Domain, in.Recipient.Hex(), in.Network, in.Mailbox.Hex(), err)
		}
		if fee == nil || fee.Sign() < 0 {
			return nil, fmt.Errorf("%w: mailbox %s on %s returned an invalid fee %v",
				deployment.ErrQuote, in.Mailbox.Hex(), in.Network, fee)
		}

		return (*hexutil.Big)(fee), nil
	},
)

// SendInput is the input of SendOp.
type SendInput struct {
	Network string         `json:"network"`
	Client  common.Address `json:"client"`
	Domain  uint32         `json:"domain"`
	Message string         `json:"message"`
	Value   *hexutil.Big   `json:"value"`
}

// SendOutput is the output of SendOp.
type SendOutput struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

// SendOp calls sendHelloWorld(domain, message) with the quoted value and waits for it.
var SendOp = operations.NewOperation(
	"mockclient-send",
	semver.MustParse("1.0.0"),
	"Sends a message through the MockClient paying the quoted fee",
	func(b operations.Bundle, deps Deps, in SendInput) (SendOutput, error) {
		opts := deps.Chain.TransactOpts(b.GetContext())
		opts.Value = in.Value.ToInt()

		tx, err := deps.Sender.SendHelloWorld(opts, in.Domain, in.Message)
		if err != nil {
			return SendOutput{}, fmt.Errorf("%w: sendHelloWorld(%d) on %s client %s with value %s: %w",
				deployment.ErrTransaction, in.Domain, in.Network, in.Client.Hex(), in.Value.ToInt(), err)
		}

		block, err := deps.Chain.Confirm(tx)
		if err != nil {
			return SendOutput{}, fmt.Errorf("%w: sendHelloWorld(%d) on %s client %s with value %s: %w",
				deployment.ErrTransaction, in.Domain, in.Network, in.Client.Hex(), in.Value.ToInt(), err)
		}

		return SendOutput{TxHash: tx.Hash(), BlockNumber: block}, nil
	},
)

// Result is the outcome of a send.
type Result struct {
	Fee         *big.Int
	TxHash      common.Hash
	BlockNumber uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithReporter records the dispatch operations with reporter.
func WithReporter(reporter operations.Reporter) Option {
	return func(d *Dispatcher) {
		d.reporter = reporter
	}
}

// WithBindings replaces the contract bindings, mostly for tests.
func WithBindings(
	newQuoter func(common.Address, bind.ContractBackend) (Quoter, error),
	newSender func(common.Address, bind.ContractBackend) (Sender, error),
) Option {
	return func(d *Dispatcher) {
		d.newQuoter = newQuoter
		d.newSender = newSender
	}
}

// Dispatcher sends messages between enrolled clients.
type Dispatcher struct {
	lggr      logger.Logger
	reporter  operations.Reporter
	newQuoter func(common.Address, bind.ContractBackend) (Quoter, error)
	newSender func(common.Address, bind.ContractBackend) (Sender, error)
}

// NewDispatcher creates a Dispatcher using the Mailbox and MockClient bindings.
func NewDispatcher(lggr logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		lggr:     lggr.Named("dispatch"),
		reporter: operations.NewMemoryReporter(),
		newQuoter: func(address common.Address, backend bind.ContractBackend) (Quoter, error) {
			return contracts.NewMailbox(address, backend)
		},
		newSender: func(address common.Address, backend bind.ContractBackend) (Sender, error) {
			return contracts.NewMockClient(address, backend)
		},
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Send quotes the fee of sending payload to remote on local's mailbox and then sends it from
// local with exactly the quoted value. When the quote fails nothing is sent.
func (d *Dispatcher) Send(
	ctx context.Context, chain evm.Chain, local, remote deployment.Record, payload []byte,
) (Result, error) {
	switch {
	case local.Network != chain.Network || local.ChainID != chain.ChainID:
		return Result{}, fmt.Errorf("%w: record of %q (chain id %d) used on chain %s",
			deployment.ErrConfiguration, local.Network, local.ChainID, chain)
	case local.Network == remote.Network || local.ChainID == remote.ChainID:
		return Result{}, fmt.Errorf("%w: %q cannot send to itself", deployment.ErrConfiguration, local.Network)
	}

	lggr := d.lggr.With("network", local.Network, "address", local.Address.Hex(), "domain", remote.ChainID)
	b := operations.NewBundle(func() context.Context { return ctx }, lggr, d.reporter)

	quoter, err := d.newQuoter(local.Mailbox, chain.Client)
	if err != nil {
		return Result{}, fmt.Errorf("%w: bind mailbox %s: %w", deployment.ErrConfiguration, local.Mailbox.Hex(), err)
	}
	sender, err := d.newSender(local.Address, chain.Client)
	if err != nil {
		return Result{}, fmt.Errorf("%w: bind client %s: %w", deployment.ErrConfiguration, local.Address.Hex(), err)
	}
	deps := Deps{Chain: chain, Quoter: quoter, Sender: sender}

	quote, err := operations.ExecuteOperation(b, QuoteDispatchOp, deps, QuoteInput{
		Network:   local.Network,
		Mailbox:   local.Mailbox,
		Domain:    remote.ChainID,
		Recipient: remote.Address,
		Body:      payload,
	}, operations.WithForce[QuoteInput, Deps]())
	if err != nil {
		lggr.Errorw("Quote failed, message not sent", "recipient", remote.Address.Hex(), "error", err)

		return Result{}, err
	}
	fee := quote.Output.ToInt()
	lggr.Infow("Quoted dispatch fee", "recipient", remote.Address.Hex(), "fee", fee.String())

	sent, err := operations.ExecuteOperation(b, SendOp, deps, SendInput{
		Network: local.Network,
		Client:  local.Address,
		Domain:  remote.ChainID,
		Message: string(payload),
		Value:   quote.Output,
	}, operations.WithForce[SendInput, Deps]())
	if err != nil {
		lggr.Errorw("Send failed", "fee", fee.String(), "error", err)

		return Result{Fee: fee}, err
	}
	lggr.Infow("Message sent", "txHash", sent.Output.TxHash.Hex(), "fee", fee.String(), "block", sent.Output.BlockNumber)

	return Result{Fee: fee, TxHash: sent.Output.TxHash, BlockNumber: sent.Output.BlockNumber}, nil
}
