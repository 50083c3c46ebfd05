package hyperlane

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

const sepoliaAddressesYAML = `
domainRoutingIsmFactory: "0x3F100cBBE5FD5466BdB4B3a15Ac226957e7965Ad"
interchainGasPaymaster: "0x6f2756380FD49228ae25Aa7F2817993cB74Ecc56"
interchainSecurityModule: "0x81EbEdfc1220BE33C3B9c5E09c1FCab849a392A6"
mailbox: "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766"
merkleTreeHook: "0x4917a9746A7B6E0A57159cCb7F5a6744247f2d0d"
validatorAnnounce: "0xE6105C59480a1B7DD3E4f28153aFF8Fc6C2Ed7Df"
`

var (
	sepoliaMailbox = common.HexToAddress("0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766")
	staticRouter   = common.HexToAddress("0x598facE78a4302f11E3de0bee1894Da0b2Cb71F8")
)

func testNetworks(t *testing.T) *network.Config {
	t.Helper()

	rpcs := []network.RPC{{RPCName: "local", HTTPURL: "http://localhost:8545"}}
	ism := common.HexToAddress("0x01")

	cfg, err := network.NewConfig([]network.Network{
		{Name: "sepolia", ChainID: 11155111, SecurityModule: ism, RPCs: rpcs},
		{Name: "arbitrumsepolia", ChainID: 421614, SecurityModule: ism, RPCs: rpcs, Router: &staticRouter},
		{Name: "holesky", ChainID: 17000, SecurityModule: ism, RPCs: rpcs},
	})
	require.NoError(t, err)

	return cfg
}

func newRegistryServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/chains/sepolia/addresses.yaml", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sepoliaAddressesYAML))
	})
	mux.HandleFunc("/chains/holesky/addresses.yaml", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("mailbox: not-an-address\n"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, &hits
}

func Test_Resolver_ResolveRouterAddress_HTTP(t *testing.T) {
	t.Parallel()

	srv, hits := newRegistryServer(t)

	r := NewResolver(logger.Test(t), testNetworks(t),
		WithRegistryURL(srv.URL+"/"),
		WithHTTPClient(resty.New()),
	)

	tests := []struct {
		name    string
		give    string
		want    common.Address
		wantErr string
		wantIs  error
	}{
		{
			name: "static router from manifest",
			give: "arbitrumsepolia",
			want: staticRouter,
		},
		{
			name: "router from registry",
			give: "sepolia",
			want: sepoliaMailbox,
		},
		{
			name:    "registry entry is not an address",
			give:    "holesky",
			wantErr: `registry mailbox address "not-an-address" is not an EVM address`,
			wantIs:  deployment.ErrConfiguration,
		},
		{
			name:   "unknown network",
			give:   "optimism",
			wantIs: deployment.ErrUnknownNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveRouterAddress(t.Context(), tt.give)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
				if tt.wantErr != "" {
					assert.ErrorContains(t, err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// sepolia is cached after the first lookup
	_, err := r.ResolveRouterAddress(t.Context(), "sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func Test_Resolver_ResolveRouterAddress_HTTPNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	r := NewResolver(logger.Test(t), testNetworks(t), WithRegistryURL(srv.URL), WithHTTPClient(resty.New()))

	_, err := r.ResolveRouterAddress(t.Context(), "sepolia")
	require.ErrorIs(t, err, deployment.ErrConfiguration)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func Test_Resolver_ChainAddresses_Concurrent(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var sepoliaHits, holeskyHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/chains/sepolia/addresses.yaml", func(w http.ResponseWriter, r *http.Request) {
		sepoliaHits.Add(1)
		<-release
		_, _ = w.Write([]byte(sepoliaAddressesYAML))
	})
	mux.HandleFunc("/chains/holesky/addresses.yaml", func(w http.ResponseWriter, r *http.Request) {
		holeskyHits.Add(1)
		_, _ = w.Write([]byte(sepoliaAddressesYAML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	r := NewResolver(logger.Test(t), testNetworks(t), WithRegistryURL(srv.URL), WithHTTPClient(resty.New()))

	var wg sync.WaitGroup
	routers := make([]common.Address, 3)
	errs := make([]error, 3)
	for i := range routers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			routers[i], errs[i] = r.ResolveRouterAddress(t.Context(), "sepolia")
		}()
	}

	require.Eventually(t, func() bool { return sepoliaHits.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	// A slow registry answer for one network does not hold up another.
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	addrs, err := r.ChainAddresses(ctx, "holesky")
	require.NoError(t, err)
	assert.Equal(t, sepoliaMailbox.Hex(), addrs.Mailbox)

	close(release)
	wg.Wait()

	for i := range routers {
		require.NoError(t, errs[i])
		assert.Equal(t, sepoliaMailbox, routers[i])
	}
	assert.Equal(t, int64(1), sepoliaHits.Load())
	assert.Equal(t, int64(1), holeskyHits.Load())
}

func Test_Resolver_ChainAddresses_LocalDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	chainDir := filepath.Join(dir, "chains", "sepolia")
	require.NoError(t, os.MkdirAll(chainDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chainDir, "addresses.yaml"), []byte(sepoliaAddressesYAML), 0o600))

	r := NewResolver(logger.Test(t), testNetworks(t),
		WithRegistryDir(dir),
		WithRegistryURL("http://127.0.0.1:0"),
	)

	addrs, err := r.ChainAddresses(t.Context(), "sepolia")
	require.NoError(t, err)
	assert.Equal(t, "0x81EbEdfc1220BE33C3B9c5E09c1FCab849a392A6", addrs.InterchainSecurityModule)
	assert.Equal(t, "0x4917a9746A7B6E0A57159cCb7F5a6744247f2d0d", addrs.MerkleTreeHook)

	router, err := r.ResolveRouterAddress(t.Context(), "sepolia")
	require.NoError(t, err)
	assert.Equal(t, sepoliaMailbox, router)

	_, err = r.ResolveRouterAddress(t.Context(), "holesky")
	require.ErrorIs(t, err, deployment.ErrConfiguration)
	assert.ErrorContains(t, err, "failed to read registry file")
}

func Test_parseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "valid", give: "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766"},
		{name: "empty", give: "", wantErr: "registry has no mailbox address"},
		{name: "short", give: "0x1234", wantErr: "is not an EVM address"},
		{name: "zero", give: "0x0000000000000000000000000000000000000000", wantErr: "zero address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseAddress("mailbox", tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
