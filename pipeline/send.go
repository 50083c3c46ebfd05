package pipeline

import (
	"context"
	"fmt"

	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/dispatch"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

// SendInput selects the pair of a send.
type SendInput struct {
	// From is the network the message is sent from.
	From string
	// To is the network of the recipient client.
	To string
	// Message is the payload, required. Callers default it to dispatch.DefaultMessage.
	Message string
}

// Send loads the deployment file and sends Message from the client of From to the client of To,
// paying the fee quoted by the mailbox of From. Both clients must be recorded.
func (p *Pipeline) Send(ctx context.Context, in SendInput) (dispatch.Result, error) {
	if in.Message == "" {
		return dispatch.Result{}, fmt.Errorf("%w: message is empty", deployment.ErrConfiguration)
	}

	from, err := p.networks.Lookup(in.From)
	if err != nil {
		return dispatch.Result{}, err
	}
	if _, err = p.networks.Lookup(in.To); err != nil {
		return dispatch.Result{}, err
	}

	set, err := deployment.Load(p.path)
	if err != nil {
		return dispatch.Result{}, err
	}
	local, remote, err := set.Pair(in.From, in.To)
	if err != nil {
		return dispatch.Result{}, err
	}

	chain, err := p.loadChain(ctx, from)
	if err != nil {
		return dispatch.Result{}, err
	}

	dispatcher := dispatch.NewDispatcher(p.lggr, dispatch.WithReporter(p.reporter))

	return dispatcher.Send(ctx, chain, local, remote, []byte(in.Message))
}

// Verify verifies the recorded clients of the named networks, all recorded networks when names
// is empty. Verification failures are logged and reported in the statuses, the error is only
// set when the networks or the deployment file cannot be read.
func (p *Pipeline) Verify(ctx context.Context, names []string) (map[string]verification.Status, error) {
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

	if p.verifier == nil || p.source == nil {
		out := make(map[string]verification.Status, len(nets))
		for _, net := range nets {
			out[net.Name] = verification.StatusSkipped
		}

		return out, nil
	}

	return p.verifier.VerifyAll(ctx, nets, set, *p.source), nil
}
