package provider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerGenerator creates the transact options of the deployer key for a chain id and signs
// arbitrary hashes with the same key.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
	SignHash(hash []byte) ([]byte, error)
}

var (
	_ SignerGenerator = (*transactorFromRaw)(nil)
	_ SignerGenerator = (*transactorRandom)(nil)
	_ SignerGenerator = (*transactorFromKMSSigner)(nil)
)

// GeneratorOptions contains configuration options for the SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

// WithGasLimit fixes the gas limit of generated transact options instead of estimating it.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

// TransactorFromRaw returns a generator for a hex encoded private key, with or without the 0x
// prefix.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	o := &GeneratorOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &transactorFromRaw{
		privKey:  strings.TrimPrefix(strings.TrimSpace(privKey), "0x"),
		gasLimit: o.gasLimit,
	}
}

type transactorFromRaw struct {
	privKey  string
	gasLimit uint64
}

func (g *transactorFromRaw) key() (*ecdsa.PrivateKey, error) {
	if g.privKey == "" {
		return nil, errors.New("private key is empty")
	}

	privKey, err := crypto.HexToECDSA(g.privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return privKey, nil
}

func (g *transactorFromRaw) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := g.key()
	if err != nil {
		return nil, err
	}

	transactor, err := bind.NewKeyedTransactorWithChainID(privKey, chainID)
	if err != nil {
		return nil, err
	}
	if g.gasLimit > 0 {
		transactor.GasLimit = g.gasLimit
	}

	return transactor, nil
}

func (g *transactorFromRaw) SignHash(hash []byte) ([]byte, error) {
	privKey, err := g.key()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return sig, nil
}

// TransactorRandom returns a generator for a key created on first use and reused afterwards.
func TransactorRandom() SignerGenerator {
	return &transactorRandom{}
}

type transactorRandom struct {
	mu      sync.Mutex
	privKey *ecdsa.PrivateKey
}

func (g *transactorRandom) key() (*ecdsa.PrivateKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return g.privKey, nil
}

func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := g.key()
	if err != nil {
		return nil, err
	}

	return bind.NewKeyedTransactorWithChainID(privKey, chainID)
}

func (g *transactorRandom) SignHash(hash []byte) ([]byte, error) {
	privKey, err := g.key()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return sig, nil
}

// TransactorFromKMS returns a generator backed by a KMS key. An empty awsProfileName uses the
// default AWS credential chain.
func TransactorFromKMS(keyID, keyRegion, awsProfileName string) (SignerGenerator, error) {
	signer, err := NewKMSSigner(keyID, keyRegion, awsProfileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS signer: %w", err)
	}

	return TransactorFromKMSSigner(signer), nil
}

// TransactorFromKMSSigner returns a generator for an existing KMSSigner.
func TransactorFromKMSSigner(signer *KMSSigner) SignerGenerator {
	return &transactorFromKMSSigner{signer: signer}
}

type transactorFromKMSSigner struct {
	signer *KMSSigner
}

func (g *transactorFromKMSSigner) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	transactor, err := g.signer.GetTransactOpts(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transact opts from KMS signer: %w", err)
	}

	return transactor, nil
}

func (g *transactorFromKMSSigner) SignHash(hash []byte) ([]byte, error) {
	return g.signer.SignHash(hash)
}
