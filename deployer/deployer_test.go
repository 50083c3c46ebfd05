package deployer

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm"
	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts/contractstest"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/operations"
	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

var testMailbox = common.HexToAddress("0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766")

func newSimChain(t *testing.T) evm.Chain {
	t.Helper()

	chain, err := provider.NewSimChainProvider(t, "sepolia", provider.SimChainProviderConfig{
		ChainID: 11155111,
	}).Initialize(t.Context())
	require.NoError(t, err)

	return chain
}

func Test_New(t *testing.T) {
	t.Parallel()

	_, err := New(logger.Test(t), nil)
	require.ErrorContains(t, err, "artifact is required")

	d, err := New(logger.Test(t), contractstest.StubArtifact(t), WithHook(common.HexToAddress("0x02")))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x02"), d.hook)
}

func Test_Deployer_Deploy(t *testing.T) {
	t.Parallel()

	chain := newSimChain(t)
	reporter := operations.NewMemoryReporter()

	d, err := New(logger.Test(t), contractstest.StubArtifact(t), WithReporter(reporter))
	require.NoError(t, err)

	rec, err := d.Deploy(t.Context(), chain, testMailbox)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", rec.Network)
	assert.Equal(t, uint32(11155111), rec.ChainID)
	assert.Equal(t, testMailbox, rec.Mailbox)
	assert.Equal(t, common.Address{}, rec.Hook())
	require.NoError(t, rec.Validate())

	code, err := chain.Client.CodeAt(t.Context(), rec.Address, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	// a second deploy creates a second contract
	again, err := d.Deploy(t.Context(), chain, testMailbox)
	require.NoError(t, err)
	assert.NotEqual(t, rec.Address, again.Address)

	reports, err := reporter.GetReports()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "mockclient-deploy", reports[0].Def.ID)
	assert.Equal(t, "1.0.0", reports[0].Def.Version.String())
}

func Test_Deployer_Deploy_Errors(t *testing.T) {
	t.Parallel()

	chain := newSimChain(t)

	failingConfirm := chain
	failingConfirm.Confirm = func(tx *types.Transaction) (uint64, error) {
		return 0, errors.New("tx timed out")
	}

	tests := []struct {
		name      string
		chain     evm.Chain
		reverting bool
		mailbox   common.Address
		wantIs    error
		wantErr   string
	}{
		{
			name:    "zero mailbox",
			chain:   chain,
			mailbox: common.Address{},
			wantIs:  deployment.ErrConfiguration,
			wantErr: "router address of sepolia is the zero address",
		},
		{
			name:      "creation reverts",
			chain:     chain,
			reverting: true,
			mailbox:   testMailbox,
			wantIs:    deployment.ErrDeploymentFailed,
		},
		{
			name:    "confirmation fails",
			chain:   failingConfirm,
			mailbox: testMailbox,
			wantIs:  deployment.ErrDeploymentFailed,
			wantErr: "tx timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := contractstest.StubArtifact(t)
			if tt.reverting {
				artifact = contractstest.RevertingArtifact(t)
			}

			d, err := New(logger.Test(t), artifact)
			require.NoError(t, err)

			_, err = d.Deploy(t.Context(), tt.chain, tt.mailbox)
			require.ErrorIs(t, err, tt.wantIs)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func Test_Deployer_Ensure(t *testing.T) {
	t.Parallel()

	chain := newSimChain(t)

	d, err := New(logger.Test(t), contractstest.StubArtifact(t))
	require.NoError(t, err)

	deployed, err := d.Deploy(t.Context(), chain, testMailbox)
	require.NoError(t, err)

	otherMailbox := deployed
	otherMailbox.Mailbox = common.HexToAddress("0x598facE78a4302f11E3de0bee1894Da0b2Cb71F8")

	otherChain := deployed
	otherChain.ChainID = 421614

	noCode := deployment.NewRecord("sepolia", 11155111, common.HexToAddress("0x1234"), testMailbox, common.Address{})

	tests := []struct {
		name       string
		existing   *deployment.Record
		force      bool
		wantReused bool
	}{
		{name: "no record", existing: nil},
		{name: "matching record with code", existing: &deployed, wantReused: true},
		{name: "forced", existing: &deployed, force: true},
		{name: "mailbox changed", existing: &otherMailbox},
		{name: "chain id changed", existing: &otherChain},
		{name: "no code on chain", existing: &noCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reused, err := d.Ensure(t.Context(), chain, testMailbox, tt.existing, tt.force)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReused, reused)

			if tt.wantReused {
				assert.Equal(t, *tt.existing, rec)
			} else {
				assert.NotEqual(t, deployed.Address, rec.Address)
				assert.Equal(t, testMailbox, rec.Mailbox)
			}
		})
	}
}
