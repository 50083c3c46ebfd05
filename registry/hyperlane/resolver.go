// Package hyperlane resolves core contract addresses of a network from the Hyperlane registry.
//
// The registry layout is chains/<name>/addresses.yaml, read either from a local checkout or over
// HTTPS from a raw file host.
package hyperlane

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// DefaultRegistryURL serves the main branch of the public registry.
const DefaultRegistryURL = "https://raw.githubusercontent.com/hyperlane-xyz/hyperlane-registry/main"

// ChainAddresses is the subset of addresses.yaml used by the deployment tooling.
type ChainAddresses struct {
	Mailbox                  string `yaml:"mailbox"`
	InterchainSecurityModule string `yaml:"interchainSecurityModule"`
	MerkleTreeHook           string `yaml:"merkleTreeHook"`
	InterchainGasPaymaster   string `yaml:"interchainGasPaymaster"`
	ValidatorAnnounce        string `yaml:"validatorAnnounce"`
}

// NetworkLookup finds the static configuration of a network.
type NetworkLookup interface {
	Lookup(name string) (network.Network, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistryDir reads the registry from a local checkout. It takes precedence over the URL.
func WithRegistryDir(dir string) Option {
	return func(r *Resolver) {
		r.dir = dir
	}
}

// WithRegistryURL reads the registry from baseURL.
func WithRegistryURL(baseURL string) Option {
	return func(r *Resolver) {
		if baseURL != "" {
			r.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the resty client, e.g. to set a proxy or debug logging.
func WithHTTPClient(client *resty.Client) Option {
	return func(r *Resolver) {
		r.client = client
	}
}

// Resolver returns the mailbox (router) of a network. A router set in the network manifest is
// used as is, otherwise the registry is queried once per network and the answer cached.
type Resolver struct {
	networks NetworkLookup
	lggr     logger.Logger
	dir      string
	baseURL  string
	client   *resty.Client

	mu     sync.Mutex
	cache  map[string]ChainAddresses
	flight singleflight.Group
}

// NewResolver creates a Resolver over the given networks.
func NewResolver(lggr logger.Logger, networks NetworkLookup, opts ...Option) *Resolver {
	r := &Resolver{
		networks: networks,
		lggr:     lggr.Named("hyperlane"),
		baseURL:  DefaultRegistryURL,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		cache: map[string]ChainAddresses{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveRouterAddress returns the router address of the named network.
func (r *Resolver) ResolveRouterAddress(ctx context.Context, name string) (common.Address, error) {
	n, err := r.networks.Lookup(name)
	if err != nil {
		return common.Address{}, err
	}

	if n.Router != nil {
		r.lggr.Debugw("Using router from network manifest", "network", name, "router", n.Router.Hex())

		return *n.Router, nil
	}

	addrs, err := r.ChainAddresses(ctx, name)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: resolve router of %q: %w", deployment.ErrConfiguration, name, err)
	}

	router, err := parseAddress("mailbox", addrs.Mailbox)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: resolve router of %q: %w", deployment.ErrConfiguration, name, err)
	}
	r.lggr.Infow("Resolved router from Hyperlane registry", "network", name, "router", router.Hex())

	return router, nil
}

// ChainAddresses returns the registry addresses of the named network. Concurrent lookups of one
// network share a single fetch and lookups of different networks run in parallel.
func (r *Resolver) ChainAddresses(ctx context.Context, name string) (ChainAddresses, error) {
	if addrs, ok := r.cached(name); ok {
		return addrs, nil
	}

	v, err, _ := r.flight.Do(name, func() (any, error) {
		if addrs, ok := r.cached(name); ok {
			return addrs, nil
		}

		data, err := r.fetch(ctx, name)
		if err != nil {
			return ChainAddresses{}, err
		}

		var addrs ChainAddresses
		if err := yaml.Unmarshal(data, &addrs); err != nil {
			return ChainAddresses{}, fmt.Errorf("failed to parse addresses of %q: %w", name, err)
		}

		r.mu.Lock()
		r.cache[name] = addrs
		r.mu.Unlock()

		return addrs, nil
	})
	if err != nil {
		return ChainAddresses{}, err
	}

	return v.(ChainAddresses), nil
}

func (r *Resolver) cached(name string) (ChainAddresses, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, ok := r.cache[name]

	return addrs, ok
}

func (r *Resolver) fetch(ctx context.Context, name string) ([]byte, error) {
	if r.dir != "" {
		path := filepath.Join(r.dir, "chains", name, "addresses.yaml")

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read registry file: %w", err)
		}

		return data, nil
	}

	url := fmt.Sprintf("%s/chains/%s/addresses.yaml", r.baseURL, name)
	resp, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status())
	}

	return resp.Body(), nil
}

func parseAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("registry has no %s address", field)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("registry %s address %q is not an EVM address", field, value)
	}

	addr := common.HexToAddress(value)
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("registry " + field + " address is the zero address")
	}

	return addr, nil
}
