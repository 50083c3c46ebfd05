package contracts

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// mockClientABI is the subset of the MockClient interface used by the deployment tooling. The
// client is a Hyperlane router: the router and ISM setters are inherited from Router and
// MailboxClient.
const mockClientABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"_mailbox","type":"address"},{"name":"_hook","type":"address"}]},
	{"type":"function","name":"enrollRemoteRouter","stateMutability":"nonpayable","inputs":[
		{"name":"_domain","type":"uint32"},{"name":"_router","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"setInterchainSecurityModule","stateMutability":"nonpayable","inputs":[
		{"name":"_module","type":"address"}],"outputs":[]},
	{"type":"function","name":"sendHelloWorld","stateMutability":"payable","inputs":[
		{"name":"_destinationDomain","type":"uint32"},{"name":"_message","type":"string"}],"outputs":[]},
	{"type":"function","name":"routers","stateMutability":"view","inputs":[
		{"name":"_domain","type":"uint32"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"interchainSecurityModule","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"mailbox","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]}
]`

var mockClientABIOnce = sync.OnceValues(func() (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(mockClientABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MockClient abi: %w", err)
	}

	return &parsed, nil
})

// MockClientABI returns the parsed MockClient ABI.
func MockClientABI() (*abi.ABI, error) {
	return mockClientABIOnce()
}

// MockClient is a binding of a deployed MockClient.
type MockClient struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewMockClient binds the MockClient at address.
func NewMockClient(address common.Address, backend bind.ContractBackend) (*MockClient, error) {
	parsed, err := MockClientABI()
	if err != nil {
		return nil, err
	}

	return &MockClient{
		address:  address,
		abi:      *parsed,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
	}, nil
}

// DeployMockClient submits the creation transaction of a MockClient constructed with
// (mailbox, hook). It does not wait for the transaction to be mined.
func DeployMockClient(
	opts *bind.TransactOpts, backend bind.ContractBackend, artifact *Artifact, mailbox, hook common.Address,
) (common.Address, *types.Transaction, *MockClient, error) {
	if artifact == nil {
		return common.Address{}, nil, nil, errors.New("artifact is required")
	}

	address, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, backend, mailbox, hook)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	client, err := NewMockClient(address, backend)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	return address, tx, client, nil
}

// Address returns the address of the bound contract.
func (c *MockClient) Address() common.Address {
	return c.address
}

// Routers returns the router enrolled for domain, zero when none is.
func (c *MockClient) Routers(opts *bind.CallOpts, domain uint32) ([32]byte, error) {
	var out []any
	if err := c.contract.Call(opts, &out, "routers", domain); err != nil {
		return [32]byte{}, err
	}

	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

// InterchainSecurityModule returns the ISM the client validates incoming messages with.
func (c *MockClient) InterchainSecurityModule(opts *bind.CallOpts) (common.Address, error) {
	return c.callAddress(opts, "interchainSecurityModule")
}

// Mailbox returns the mailbox the client was constructed with.
func (c *MockClient) Mailbox(opts *bind.CallOpts) (common.Address, error) {
	return c.callAddress(opts, "mailbox")
}

// Owner returns the owner allowed to enroll routers and set the ISM.
func (c *MockClient) Owner(opts *bind.CallOpts) (common.Address, error) {
	return c.callAddress(opts, "owner")
}

func (c *MockClient) callAddress(opts *bind.CallOpts, method string) (common.Address, error) {
	var out []any
	if err := c.contract.Call(opts, &out, method); err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// EnrollRemoteRouter registers router as the peer of the client on domain.
func (c *MockClient) EnrollRemoteRouter(opts *bind.TransactOpts, domain uint32, router [32]byte) (*types.Transaction, error) {
	return c.contract.Transact(opts, "enrollRemoteRouter", domain, router)
}

// SetInterchainSecurityModule points the client at module.
func (c *MockClient) SetInterchainSecurityModule(opts *bind.TransactOpts, module common.Address) (*types.Transaction, error) {
	return c.contract.Transact(opts, "setInterchainSecurityModule", module)
}

// SendHelloWorld dispatches message to the enrolled router of domain. opts.Value must cover
// the mailbox fee.
func (c *MockClient) SendHelloWorld(opts *bind.TransactOpts, domain uint32, message string) (*types.Transaction, error) {
	return c.contract.Transact(opts, "sendHelloWorld", domain, message)
}

// PackEnrollRemoteRouter returns the calldata of enrollRemoteRouter(domain, router).
func PackEnrollRemoteRouter(domain uint32, router [32]byte) ([]byte, error) {
	parsed, err := MockClientABI()
	if err != nil {
		return nil, err
	}

	return parsed.Pack("enrollRemoteRouter", domain, router)
}
