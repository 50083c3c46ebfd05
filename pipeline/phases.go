package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	cfgnet "github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/deployer"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/enrollment"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

// deployPhase loads the chain of every network and ensures a client on it. set is only read.
// results and chains are written at the index of each network.
func (p *Pipeline) deployPhase(
	ctx context.Context,
	dep *deployer.Deployer,
	nets []cfgnet.Network,
	set deployment.Set,
	force bool,
	results []NetworkResult,
	chains []evm.Chain,
) {
	var wg sync.WaitGroup

	for i, net := range nets {
		wg.Add(1)

		go func(index int, net cfgnet.Network) {
			defer wg.Done()

			result := NetworkResult{Network: net.Name}

			select {
			case <-ctx.Done():
				p.lggr.Warnw("Deployment cancelled", "network", net.Name)
				result.Err = ctx.Err()
			default:
				var chain evm.Chain
				chain, result.Record, result.Reused, result.Err = p.deployOne(ctx, dep, net, set)
				result.Deployed = result.Err == nil && !result.Reused
				chains[index] = chain
			}

			results[index] = result
		}(i, net)
	}

	wg.Wait()
}

func (p *Pipeline) deployOne(
	ctx context.Context, dep *deployer.Deployer, net cfgnet.Network, set deployment.Set,
) (evm.Chain, *deployment.Record, bool, error) {
	lggr := p.lggr.With("network", net.Name)

	chain, err := p.loadChain(ctx, net)
	if err != nil {
		lggr.Errorw("Failed to load chain", "error", err)

		return evm.Chain{}, nil, false, fmt.Errorf("%w: load chain %s: %w", deployment.ErrDeploymentFailed, net.Name, err)
	}

	router, err := p.resolver.ResolveRouterAddress(ctx, net.Name)
	if err != nil {
		lggr.Errorw("Failed to resolve router", "error", err)

		return chain, nil, false, fmt.Errorf("%w: resolve router of %s: %w", deployment.ErrDeploymentFailed, net.Name, err)
	}

	var existing *deployment.Record
	if rec, ok := set.Get(net.Name); ok {
		existing = &rec
	}

	rec, reused, err := dep.Ensure(ctx, chain, router, existing, force)
	if err != nil {
		return chain, nil, false, err
	}
	if !reused {
		lggr.Infow("Deployed MockClient", "address", rec.Address.Hex(), "router", router.Hex())
	}

	return chain, &rec, reused, nil
}

// enrollPhase enrolls every deployed client with the clients of the other networks of the run
// and verifies the new ones. Peers that failed to deploy in this run are not enrolled.
//
// Goroutines read the deploy outcome from a snapshot taken before they start and each writes
// only its own result, so the enroll failure of one network never reads as a missing peer on
// another.
func (p *Pipeline) enrollPhase(ctx context.Context, nets []cfgnet.Network, results []NetworkResult, chains []evm.Chain) {
	coordinator := enrollment.NewCoordinator(p.lggr, enrollment.WithReporter(p.reporter))

	deployed := make([]*deployment.Record, len(results))
	for i, r := range results {
		if r.Err == nil && r.Record != nil {
			rec := *r.Record
			deployed[i] = &rec
		}
	}

	var wg sync.WaitGroup

	for i, net := range nets {
		if deployed[i] == nil {
			continue
		}

		wg.Add(1)

		go func(index int, net cfgnet.Network) {
			defer wg.Done()

			result := &results[index]
			local := *deployed[index]

			for j, peerNet := range nets {
				if j == index {
					continue
				}
				peer := deployed[j]
				if peer == nil {
					result.Err = fmt.Errorf("%w: peer %s was not deployed", deployment.ErrMissingPeer, peerNet.Name)

					break
				}

				res, err := coordinator.Enroll(ctx, chains[index], local, *peer, net.SecurityModule)
				result.Enrollments = append(result.Enrollments, res)
				if err != nil {
					result.Err = err

					break
				}
			}
			result.Enrolled = result.Err == nil

			if result.Deployed {
				result.Verification = p.verify(ctx, net, local)
			}
		}(i, net)
	}

	wg.Wait()
}

// verify runs verification when a verifier and a source are configured.
func (p *Pipeline) verify(ctx context.Context, net cfgnet.Network, record deployment.Record) verification.Status {
	if p.verifier == nil || p.source == nil {
		return verification.StatusSkipped
	}

	return p.verifier.Verify(ctx, net, record, *p.source)
}
