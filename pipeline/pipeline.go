// Package pipeline runs the deploy, enroll and send workflow of the mailbox clients across
// several networks.
//
// Deployment runs concurrently with one goroutine per network. Once every deployment finished
// the records are merged into the deployment file, which is saved once, and enrollment runs
// concurrently across networks and sequentially inside a network. A failure on one network
// does not stop the others. Nothing is rolled back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	cfgnet "github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployer"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/dispatch"
	"github.com/smartcontractkit/mailbox-client-deployments/enrollment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

// RouterResolver returns the mailbox a client of the named network is constructed with.
type RouterResolver interface {
	ResolveRouterAddress(ctx context.Context, network string) (common.Address, error)
}

// Config holds the dependencies of a Pipeline.
type Config struct {
	// Required: the network registry.
	Networks *cfgnet.Config
	// Required: connects to a network.
	LoadChain ChainLoader
	// Required: resolves the mailbox of a network.
	Resolver RouterResolver
	// Required for DeployAndEnroll: the compiled client.
	Artifact *contracts.Artifact
	// Optional: defaults to deployment.DefaultPath.
	DeploymentPath string
	// Optional: defaults to a FileReporter writing next to the deployment file.
	Reporter operations.Reporter
	// Optional: hook constructor argument, the zero address by default.
	Hook common.Address
	// Optional: verifies new deployments when set together with Source.
	Verifier *verification.Verifier
	Source   *verification.Source
	// Optional: defaults to logger.Nop().
	Logger logger.Logger
}

// ReportsPath returns the operation reports file written next to a deployment file, e.g.
// deployments/mockclient.reports.json.
func ReportsPath(deploymentPath string) string {
	ext := filepath.Ext(deploymentPath)

	return strings.TrimSuffix(deploymentPath, ext) + ".reports.json"
}

// Pipeline drives the workflow. A Pipeline holds no chain connection between calls.
type Pipeline struct {
	lggr      logger.Logger
	networks  *cfgnet.Config
	loadChain ChainLoader
	resolver  RouterResolver
	path      string
	reporter  operations.Reporter
	artifact  *contracts.Artifact
	hook      common.Address
	verifier  *verification.Verifier
	source    *verification.Source
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	var errs []error
	if cfg.Networks == nil {
		errs = append(errs, errors.New("networks are required"))
	}
	if cfg.LoadChain == nil {
		errs = append(errs, errors.New("chain loader is required"))
	}
	if cfg.Resolver == nil {
		errs = append(errs, errors.New("router resolver is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", deployment.ErrConfiguration, err)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.DeploymentPath == "" {
		cfg.DeploymentPath = deployment.DefaultPath
	}
	if cfg.Reporter == nil {
		reporter, err := operations.NewFileReporter(ReportsPath(cfg.DeploymentPath))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", deployment.ErrDeploymentFile, err)
		}
		cfg.Reporter = reporter
	}

	return &Pipeline{
		lggr:      cfg.Logger.Named("pipeline"),
		networks:  cfg.Networks,
		loadChain: cfg.LoadChain,
		resolver:  cfg.Resolver,
		path:      cfg.DeploymentPath,
		reporter:  cfg.Reporter,
		artifact:  cfg.Artifact,
		hook:      cfg.Hook,
		verifier:  cfg.Verifier,
		source:    cfg.Source,
	}, nil
}

// DeploymentPath returns the deployment file of the pipeline.
func (p *Pipeline) DeploymentPath() string {
	return p.path
}

// Reporter returns the reporter recording the operations of the pipeline.
func (p *Pipeline) Reporter() operations.Reporter {
	return p.reporter
}

// Input selects the networks of a DeployAndEnroll run.
type Input struct {
	// Networks are the registry names to deploy to, at least two. Every network is enrolled with
	// every other one.
	Networks []string
	// Force deploys new clients even when the recorded ones are still usable.
	Force bool
}

// NetworkResult is the outcome of one network.
type NetworkResult struct {
	Network string
	// Record is the client used on the network, nil when the deploy phase failed.
	Record *deployment.Record
	// Deployed is true when a new client was deployed by this run.
	Deployed bool
	// Reused is true when the recorded client was kept.
	Reused bool
	// Enrollments holds one entry per peer that was processed, including a failed one.
	Enrollments []enrollment.Result
	// Enrolled is true once the client is enrolled with every peer.
	Enrolled     bool
	Verification verification.Status
	Err          error
}

// Output is the outcome of DeployAndEnroll.
type Output struct {
	Results []NetworkResult
	// Deployments is the deployment file content after the run.
	Deployments deployment.Set
}

// Failed returns the results that carry an error.
func (o Output) Failed() []NetworkResult {
	var out []NetworkResult
	for _, r := range o.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}

	return out
}

// DeployAndEnroll deploys a client on every network, persists the records, then enrolls every
// client with the clients of the other networks and sets its security module. The error joins
// the error of every failed network. Output is returned even when some networks failed.
func (p *Pipeline) DeployAndEnroll(ctx context.Context, in Input) (Output, error) {
	nets, err := p.selectNetworks(in.Networks)
	if err != nil {
		return Output{}, err
	}

	dep, err := p.newDeployer()
	if err != nil {
		return Output{}, err
	}

	set, err := deployment.Load(p.path)
	if err != nil {
		return Output{}, err
	}

	results := make([]NetworkResult, len(nets))
	chains := make([]evm.Chain, len(nets))

	p.deployPhase(ctx, dep, nets, set, in.Force, results, chains)

	out := Output{Results: results, Deployments: set.Clone()}
	if n := p.merge(out.Deployments, results); n == 0 {
		p.lggr.Errorw("No client deployed, skipping enrollment")

		return out, p.joinErrors(results)
	}
	if err = deployment.Save(p.path, out.Deployments); err != nil {
		p.lggr.Errorw("Failed to save deployments, skipping enrollment", "path", p.path, "error", err)

		return out, errors.Join(p.joinErrors(results), err)
	}
	p.lggr.Infow("Saved deployments", "path", p.path, "networks", out.Deployments.Names())

	p.enrollPhase(ctx, nets, results, chains)

	if err = p.joinErrors(results); err != nil {
		p.lggr.Errorw("Pipeline finished with failures",
			"failed", len(out.Failed()), "total", len(results))

		return out, err
	}
	p.lggr.Infow("Pipeline finished", "networks", len(results))

	return out, nil
}

func (p *Pipeline) selectNetworks(names []string) ([]cfgnet.Network, error) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: network %q selected twice", deployment.ErrConfiguration, name)
		}
		seen[name] = struct{}{}
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: at least two networks are required, got %d", deployment.ErrConfiguration, len(names))
	}

	return p.networks.LookupAll(names...)
}

func (p *Pipeline) newDeployer() (*deployer.Deployer, error) {
	if p.artifact == nil {
		return nil, fmt.Errorf("%w: no MockClient artifact loaded", deployment.ErrConfiguration)
	}

	return deployer.New(p.lggr, p.artifact, deployer.WithReporter(p.reporter), deployer.WithHook(p.hook))
}

// merge writes the records of the successful networks into set and returns how many there were.
func (p *Pipeline) merge(set deployment.Set, results []NetworkResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil || r.Record == nil {
			continue
		}
		set.Put(*r.Record)
		n++
	}

	return n
}

func (p *Pipeline) joinErrors(results []NetworkResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Network, r.Err))
		}
	}

	return errors.Join(errs...)
}
