package provider

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/internal/kms"
)

// newFakeRPCServer answers eth_blockNumber and eth_chainId for chainID, echoing the request id.
func newFakeRPCServer(t *testing.T, chainID uint64) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_chainId":
			_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%x"}`, req.ID, chainID)
		default:
			_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x1"}`, req.ID)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

// alwaysFailingSignerGenerator fails every call.
type alwaysFailingSignerGenerator struct{}

func (alwaysFailingSignerGenerator) Generate(*big.Int) (*bind.TransactOpts, error) {
	return nil, assert.AnError
}

func (alwaysFailingSignerGenerator) SignHash([]byte) ([]byte, error) {
	return nil, assert.AnError
}

// fakeCaller returns a fixed result for every call.
type fakeCaller struct {
	out []byte
	err error
}

func (c fakeCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return c.out, c.err
}

// jsonError has the method set of the go-ethereum JSON-RPC error.
type jsonError struct {
	Code    int
	Message string
	Data    any
}

func (err *jsonError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("json-rpc error %d", err.Code)
	}

	return err.Message
}

func (err *jsonError) ErrorCode() int { return err.Code }

func (err *jsonError) ErrorData() any { return err.Data }

// fakeKMSClient behaves like KMS for a local secp256k1 key.
type fakeKMSClient struct {
	key *ecdsa.PrivateKey

	// highS makes Sign return the S value from the upper half of the curve order.
	highS           bool
	publicKey       []byte
	getPublicKeyErr error
	signErr         error

	getPublicKeyCalls int
	signInputs        []*kmslib.SignInput
}

var _ kms.Client = (*fakeKMSClient)(nil)

func newFakeKMSClient(t *testing.T) *fakeKMSClient {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	return &fakeKMSClient{key: key}
}

func (c *fakeKMSClient) GetPublicKey(*kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error) {
	c.getPublicKeyCalls++
	if c.getPublicKeyErr != nil {
		return nil, c.getPublicKeyErr
	}
	if c.publicKey != nil {
		return &kmslib.GetPublicKeyOutput{PublicKey: c.publicKey}, nil
	}

	pub := crypto.FromECDSAPub(&c.key.PublicKey)
	der, err := asn1.Marshal(kms.SPKI{
		AlgorithmIdentifier: pkix.AlgorithmIdentifier{
			Algorithm: asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1},
		},
		SubjectPublicKey: asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	if err != nil {
		return nil, err
	}

	return &kmslib.GetPublicKeyOutput{PublicKey: der}, nil
}

func (c *fakeKMSClient) Sign(in *kmslib.SignInput) (*kmslib.SignOutput, error) {
	c.signInputs = append(c.signInputs, in)
	if c.signErr != nil {
		return nil, c.signErr
	}

	sig, err := crypto.Sign(in.Message, c.key)
	if err != nil {
		return nil, err
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if c.highS {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	der, err := asn1.Marshal(struct{ R, S *big.Int }{r, s})
	if err != nil {
		return nil, err
	}

	return &kmslib.SignOutput{Signature: der}, nil
}

func (c *fakeKMSClient) address() string {
	return crypto.PubkeyToAddress(c.key.PublicKey).Hex()
}

func emptyABI(t *testing.T) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader("[]"))
	require.NoError(t, err)

	return parsed
}
