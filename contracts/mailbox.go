package contracts

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const mailboxABI = `[
	{"type":"function","name":"quoteDispatch","stateMutability":"view","inputs":[
		{"name":"destinationDomain","type":"uint32"},{"name":"recipientAddress","type":"bytes32"},
		{"name":"messageBody","type":"bytes"}],"outputs":[{"name":"fee","type":"uint256"}]},
	{"type":"function","name":"localDomain","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint32"}]}
]`

var mailboxABIOnce = sync.OnceValues(func() (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(mailboxABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Mailbox abi: %w", err)
	}

	return &parsed, nil
})

// Mailbox is a read-only binding of a Hyperlane mailbox.
type Mailbox struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewMailbox binds the mailbox at address.
func NewMailbox(address common.Address, caller bind.ContractCaller) (*Mailbox, error) {
	parsed, err := mailboxABIOnce()
	if err != nil {
		return nil, err
	}

	return &Mailbox{
		address:  address,
		contract: bind.NewBoundContract(address, *parsed, caller, nil, nil),
	}, nil
}

// Address returns the address of the bound mailbox.
func (m *Mailbox) Address() common.Address {
	return m.address
}

// QuoteDispatch returns the fee in wei for dispatching body to recipient on domain.
func (m *Mailbox) QuoteDispatch(opts *bind.CallOpts, domain uint32, recipient [32]byte, body []byte) (*big.Int, error) {
	var out []any
	if err := m.contract.Call(opts, &out, "quoteDispatch", domain, recipient, body); err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// LocalDomain returns the domain the mailbox dispatches from.
func (m *Mailbox) LocalDomain(opts *bind.CallOpts) (uint32, error) {
	var out []any
	if err := m.contract.Call(opts, &out, "localDomain"); err != nil {
		return 0, err
	}

	return *abi.ConvertType(out[0], new(uint32)).(*uint32), nil
}
