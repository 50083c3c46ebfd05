// Package verification publishes the sources of deployed clients on Etherscan compatible block
// explorers. Verification is best effort: failures are logged as warnings and never returned.
package verification

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"

	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// Status is the outcome of verifying one contract.
type Status string

const (
	// StatusVerified means the source was submitted and accepted.
	StatusVerified Status = "verified"
	// StatusAlreadyVerified means the explorer already had the source.
	StatusAlreadyVerified Status = "already-verified"
	// StatusSkipped means no API key or explorer is configured for the network.
	StatusSkipped Status = "skipped"
	// StatusFailed means verification failed. The cause was logged.
	StatusFailed Status = "failed"
)

// Source is what is submitted to the explorer for a client.
type Source struct {
	Artifact  *contracts.Artifact
	BuildInfo *contracts.BuildInfo
}

// LoadSource reads the artifact at artifactPath and the build info it references.
func LoadSource(artifactPath string) (Source, error) {
	artifact, err := contracts.LoadArtifact(artifactPath)
	if err != nil {
		return Source{}, err
	}

	info, err := contracts.LoadBuildInfo(artifactPath)
	if err != nil {
		return Source{}, err
	}

	return Source{Artifact: artifact, BuildInfo: info}, nil
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the resty client used to call the explorer.
func WithHTTPClient(client *resty.Client) Option {
	return func(v *Verifier) {
		v.http = client
	}
}

// WithPolling sets how often and how many times the verification status is checked.
func WithPolling(interval time.Duration, attempts uint) Option {
	return func(v *Verifier) {
		v.pollInterval = interval
		v.pollAttempts = attempts
	}
}

// Verifier submits client sources to block explorers.
type Verifier struct {
	lggr   logger.Logger
	http   *resty.Client
	apiKey string

	pollInterval time.Duration
	pollAttempts uint
}

// NewVerifier creates a Verifier using apiKey for networks whose explorer has no key of its own.
func NewVerifier(lggr logger.Logger, apiKey string, opts ...Option) *Verifier {
	v := &Verifier{
		lggr:         lggr.Named("verification"),
		apiKey:       apiKey,
		pollInterval: 5 * time.Second,
		pollAttempts: 24,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.http == nil {
		v.http = resty.New().SetTimeout(30 * time.Second)
	}

	return v
}

// Verify submits the source of record on net and waits for the explorer to accept it. It never
// fails: errors are logged as a warning and reported as StatusFailed.
func (v *Verifier) Verify(ctx context.Context, net network.Network, record deployment.Record, source Source) Status {
	status, err := v.verify(ctx, net, record, source)
	if err != nil {
		v.lggr.Warnw("verification failed; continuing",
			"network", net.Name, "address", record.Address.Hex(), "error", err)

		return StatusFailed
	}

	return status
}

// VerifyAll verifies the record of every network in networks. Networks without a record are
// reported as failed.
func (v *Verifier) VerifyAll(
	ctx context.Context, networks []network.Network, set deployment.Set, source Source,
) map[string]Status {
	out := make(map[string]Status, len(networks))
	for _, net := range networks {
		record, ok := set.Get(net.Name)
		if !ok {
			v.lggr.Warnw("verification failed; continuing", "network", net.Name,
				"error", fmt.Errorf("%w: no deployment recorded for %q", deployment.ErrMissingPeer, net.Name))
			out[net.Name] = StatusFailed

			continue
		}

		out[net.Name] = v.Verify(ctx, net, record, source)
	}

	return out
}

func (v *Verifier) verify(
	ctx context.Context, net network.Network, record deployment.Record, source Source,
) (Status, error) {
	apiKey := net.BlockExplorer.APIKey
	if apiKey == "" {
		apiKey = v.apiKey
	}
	if apiKey == "" {
		v.lggr.Infow("No explorer API key, skipping verification", "network", net.Name)

		return StatusSkipped, nil
	}

	if record.Network != net.Name || record.ChainID != net.ChainID {
		return StatusFailed, fmt.Errorf("record of %q (chain id %d) does not belong to %s (chain id %d)",
			record.Network, record.ChainID, net.Name, net.ChainID)
	}
	if source.Artifact == nil || source.BuildInfo == nil {
		return StatusFailed, errors.New("artifact and build info are required")
	}

	apiURL := net.BlockExplorer.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	client := &etherscan{http: v.http, apiURL: apiURL, apiKey: apiKey, chainID: net.ChainID}

	lggr := v.lggr.With("network", net.Name, "address", record.Address.Hex())

	verified, err := client.IsVerified(ctx, record.Address)
	if err != nil {
		return StatusFailed, err
	}
	if verified {
		lggr.Infow("Contract is already verified")

		return StatusAlreadyVerified, nil
	}

	args, err := source.Artifact.PackConstructorArgs(record.Mailbox, record.Hook())
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to pack constructor args: %w", err)
	}

	guid, err := client.Submit(ctx, submission{
		Address:         record.Address,
		SourceCode:      string(source.BuildInfo.Input),
		ContractName:    source.Artifact.FullyQualifiedName(),
		CompilerVersion: "v" + source.BuildInfo.SolcLongVersion,
		ConstructorArgs: hex.EncodeToString(args),
	})
	if errors.Is(err, errAlreadyVerified) {
		lggr.Infow("Contract is already verified")

		return StatusAlreadyVerified, nil
	}
	if err != nil {
		return StatusFailed, err
	}
	lggr.Infow("Submitted source for verification", "guid", guid)

	err = retry.Do(
		func() error {
			return client.CheckStatus(ctx, guid)
		},
		retry.Context(ctx),
		retry.Attempts(v.pollAttempts),
		retry.Delay(v.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errPending)
		}),
		retry.LastErrorOnly(true),
	)
	switch {
	case errors.Is(err, errAlreadyVerified):
		lggr.Infow("Contract is already verified")

		return StatusAlreadyVerified, nil
	case err != nil:
		return StatusFailed, fmt.Errorf("verification %s did not pass: %w", guid, err)
	}

	lggr.Infow("Contract verified", "url", net.BlockExplorer.AddressURL(record.Address))

	return StatusVerified, nil
}
