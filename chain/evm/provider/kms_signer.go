package provider

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/internal/kms"
)

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

// KMSSigner signs EVM transactions and hashes with an AWS KMS secp256k1 key.
type KMSSigner struct {
	client   kms.Client
	kmsKeyID string

	mu     sync.Mutex
	pubKey *ecdsa.PublicKey
}

// NewKMSSigner creates a KMSSigner for the key. An empty awsProfile uses the default AWS
// credential chain.
func NewKMSSigner(keyID, keyRegion, awsProfile string) (*KMSSigner, error) {
	client, err := kms.NewClient(kms.ClientConfig{
		KeyID:      keyID,
		KeyRegion:  keyRegion,
		AWSProfile: awsProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KMS Client: %w", err)
	}

	return newKMSSignerWithClient(client, keyID), nil
}

func newKMSSignerWithClient(client kms.Client, keyID string) *KMSSigner {
	return &KMSSigner{client: client, kmsKeyID: keyID}
}

// GetECDSAPublicKey fetches the public key from KMS once and caches it.
func (s *KMSSigner) GetECDSAPublicKey() (*ecdsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubKey != nil {
		return s.pubKey, nil
	}

	out, err := s.client.GetPublicKey(&kmslib.GetPublicKeyInput{
		KeyId: aws.String(s.kmsKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot get public key from KMS for KeyId=%s: %w", s.kmsKeyID, err)
	}

	var spki kms.SPKI
	if _, err = asn1.Unmarshal(out.PublicKey, &spki); err != nil {
		return nil, fmt.Errorf("cannot parse asn1 public key for KeyId=%s: %w", s.kmsKeyID, err)
	}

	pubKey, err := crypto.UnmarshalPubkey(spki.SubjectPublicKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cannot unmarshal public key bytes: %w", err)
	}
	s.pubKey = pubKey

	return pubKey, nil
}

// GetAddress returns the EVM address of the KMS key.
func (s *KMSSigner) GetAddress() (common.Address, error) {
	pubKey, err := s.GetECDSAPublicKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// GetTransactOpts returns transact options whose signer delegates to KMS.
func (s *KMSSigner) GetTransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chainID is required")
	}

	pubKey, err := s.GetECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	return &bind.TransactOpts{
		From:   crypto.PubkeyToAddress(*pubKey),
		Signer: s.signerFunc(pubKey, chainID),
	}, nil
}

// SignHash signs a 32 byte hash and returns a 65 byte [R || S || V] signature with V in {0, 1}.
func (s *KMSSigner) SignHash(hash []byte) ([]byte, error) {
	pubKey, err := s.GetECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	kmsSig, err := s.sign(hash)
	if err != nil {
		return nil, fmt.Errorf("call to kms.Sign() failed on hash: %w", err)
	}

	return kmsToEVMSig(kmsSig, crypto.FromECDSAPub(pubKey), hash)
}

func (s *KMSSigner) signerFunc(
	pubKey *ecdsa.PublicKey, chainID *big.Int,
) bind.SignerFn {
	pubKeyBytes := crypto.FromECDSAPub(pubKey)
	keyAddr := crypto.PubkeyToAddress(*pubKey)
	signer := types.LatestSignerForChainID(chainID)

	return func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if address != keyAddr {
			return nil, bind.ErrNotAuthorized
		}

		txHash := signer.Hash(tx).Bytes()
		kmsSig, err := s.sign(txHash)
		if err != nil {
			return nil, fmt.Errorf("call to kms.Sign() failed on transaction: %w", err)
		}

		evmSig, err := kmsToEVMSig(kmsSig, pubKeyBytes, txHash)
		if err != nil {
			return nil, fmt.Errorf("failed to convert KMS signature to Ethereum signature: %w", err)
		}

		return tx.WithSignature(signer, evmSig)
	}
}

func (s *KMSSigner) sign(digest []byte) ([]byte, error) {
	out, err := s.client.Sign(&kmslib.SignInput{
		KeyId:            aws.String(s.kmsKeyID),
		SigningAlgorithm: aws.String(kmslib.SigningAlgorithmSpecEcdsaSha256),
		MessageType:      aws.String(kmslib.MessageTypeDigest),
		Message:          digest,
	})
	if err != nil {
		return nil, err
	}

	return out.Signature, nil
}

// kmsToEVMSig converts a DER encoded KMS signature into a 65 byte EVM signature, normalizing S
// to the lower half of the curve order (EIP-2).
//
// [AWS Guides]: https://aws.amazon.com/blogs/database/part2-use-aws-kms-to-securely-manage-ethereum-accounts/
func kmsToEVMSig(kmsSig, ecdsaPubKeyBytes, hash []byte) ([]byte, error) {
	var ecdsaSig kms.ECDSASig
	if _, err := asn1.Unmarshal(kmsSig, &ecdsaSig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KMS signature: %w", err)
	}

	rBytes := ecdsaSig.R.Bytes
	sBytes := ecdsaSig.S.Bytes

	sBigInt := new(big.Int).SetBytes(sBytes)
	if sBigInt.Cmp(secp256k1HalfN) > 0 {
		sBytes = new(big.Int).Sub(secp256k1N, sBigInt).Bytes()
	}

	return recoverEVMSignature(ecdsaPubKeyBytes, hash, rBytes, sBytes)
}

// recoverEVMSignature finds the recovery id (0 or 1) for which the signature recovers the
// expected public key.
func recoverEVMSignature(expectedPublicKey, hash, r, s []byte) ([]byte, error) {
	rs := append(padTo32Bytes(r), padTo32Bytes(s)...)

	for _, v := range []byte{0, 1} {
		evmSig := append(bytes.Clone(rs), v)

		recovered, err := crypto.Ecrecover(hash, evmSig)
		if err != nil {
			return nil, fmt.Errorf("failed to recover signature with v=%d: %w", v, err)
		}
		if bytes.Equal(recovered, expectedPublicKey) {
			return evmSig, nil
		}
	}

	return nil, errors.New("cannot reconstruct public key from sig")
}

// padTo32Bytes strips leading zeros and left pads the value to 32 bytes.
func padTo32Bytes(buffer []byte) []byte {
	buffer = bytes.TrimLeft(buffer, "\x00")
	if len(buffer) >= 32 {
		return buffer
	}

	return append(make([]byte, 32-len(buffer)), buffer...)
}
