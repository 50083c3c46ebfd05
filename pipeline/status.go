package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	cfgnet "github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
)

// PeerStatus is the enrollment of one peer as seen on chain.
type PeerStatus struct {
	Network string
	Domain  uint32
	// Expected is the recorded client of the peer network.
	Expected common.Address
	// Enrolled is the router registered for the domain, the zero address when none is.
	Enrolled common.Address
}

// Matches reports whether the recorded peer is the enrolled router.
func (s PeerStatus) Matches() bool {
	return s.Expected != (common.Address{}) && s.Expected == s.Enrolled
}

// NetworkStatus is the persisted and on-chain state of the client of one network.
type NetworkStatus struct {
	Network string
	ChainID uint32
	// Record is nil when no client is recorded for the network.
	Record      *deployment.Record
	CodePresent bool
	Peers       []PeerStatus
	// SecurityModule is the module currently set on the client.
	SecurityModule common.Address
	// ExpectedSecurityModule is the module of the network manifest.
	ExpectedSecurityModule common.Address
	Err                    error
}

// Status reads the state of the clients of the named networks, all recorded networks when
// names is empty. Every other selected network is reported as a peer. Read failures are set on
// the status of the network; the error is only set when the inputs cannot be read.
func (p *Pipeline) Status(ctx context.Context, names []string) ([]NetworkStatus, error) {
	set, err := deployment.Load(p.path)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = set.Names()
	}

	nets, err := p.networks.LookupAll(names...)
	if err != nil {
		return nil, err
	}

	out := make([]NetworkStatus, len(nets))

	var wg sync.WaitGroup
	for i, net := range nets {
		wg.Add(1)

		go func(index int, net cfgnet.Network) {
			defer wg.Done()

			out[index] = p.networkStatus(ctx, net, nets, set)
		}(i, net)
	}
	wg.Wait()

	return out, nil
}

func (p *Pipeline) networkStatus(
	ctx context.Context, net cfgnet.Network, nets []cfgnet.Network, set deployment.Set,
) NetworkStatus {
	status := NetworkStatus{
		Network:                net.Name,
		ChainID:                net.ChainID,
		ExpectedSecurityModule: net.SecurityModule,
	}

	rec, ok := set.Get(net.Name)
	if !ok {
		return status
	}
	status.Record = &rec

	chain, err := p.loadChain(ctx, net)
	if err != nil {
		status.Err = err

		return status
	}

	code, err := chain.Client.CodeAt(ctx, rec.Address, nil)
	if err != nil {
		status.Err = fmt.Errorf("read code of %s: %w", rec.Address.Hex(), err)

		return status
	}
	status.CodePresent = len(code) > 0
	if !status.CodePresent {
		return status
	}

	client, err := contracts.NewMockClient(rec.Address, chain.Client)
	if err != nil {
		status.Err = err

		return status
	}

	var errs []error
	opts := chain.CallOpts(ctx)

	for _, peer := range nets {
		if peer.Name == net.Name {
			continue
		}

		ps := PeerStatus{Network: peer.Name, Domain: peer.ChainID}
		if peerRec, found := set.Get(peer.Name); found {
			ps.Expected = peerRec.Address
		}

		enrolled, rerr := readRouter(client, opts, peer.ChainID)
		if rerr != nil {
			errs = append(errs, fmt.Errorf("read router of domain %d: %w", peer.ChainID, rerr))
		}
		ps.Enrolled = enrolled
		status.Peers = append(status.Peers, ps)
	}

	ism, err := client.InterchainSecurityModule(opts)
	if err != nil {
		errs = append(errs, fmt.Errorf("read security module: %w", err))
	}
	status.SecurityModule = ism
	status.Err = errors.Join(errs...)

	return status
}

func readRouter(client *contracts.MockClient, opts *bind.CallOpts, domain uint32) (common.Address, error) {
	raw, err := client.Routers(opts, domain)
	if err != nil {
		return common.Address{}, err
	}

	return evm.Bytes32ToAddress(raw)
}
