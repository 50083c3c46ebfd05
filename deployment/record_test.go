package deployment

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Set_Pair(t *testing.T) {
	t.Parallel()

	set := testSet()

	tests := []struct {
		name        string
		giveLocal   string
		giveRemote  string
		wantLocal   common.Address
		wantRemote  common.Address
		wantErrIs   error
		wantErrText string
	}{
		{
			name:       "sepolia to arbitrumsepolia",
			giveLocal:  "sepolia",
			giveRemote: "arbitrumsepolia",
			wantLocal:  sepoliaClient,
			wantRemote: arbClient,
		},
		{
			name:       "arbitrumsepolia to sepolia",
			giveLocal:  "arbitrumsepolia",
			giveRemote: "sepolia",
			wantLocal:  arbClient,
			wantRemote: sepoliaClient,
		},
		{
			name:        "missing remote",
			giveLocal:   "sepolia",
			giveRemote:  "basesepolia",
			wantErrIs:   ErrMissingPeer,
			wantErrText: `no deployment recorded for "basesepolia"`,
		},
		{
			name:        "missing local",
			giveLocal:   "basesepolia",
			giveRemote:  "sepolia",
			wantErrIs:   ErrMissingPeer,
			wantErrText: `no deployment recorded for "basesepolia"`,
		},
		{
			name:        "same network",
			giveLocal:   "sepolia",
			giveRemote:  "sepolia",
			wantErrIs:   ErrConfiguration,
			wantErrText: "both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			local, remote, err := set.Pair(tt.giveLocal, tt.giveRemote)

			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				assert.ErrorContains(t, err, tt.wantErrText)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLocal, local.Address)
			assert.Equal(t, tt.wantRemote, remote.Address)
		})
	}
}

func Test_ErrMissingPeer_IsConfiguration(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ErrMissingPeer, ErrConfiguration)
	require.ErrorIs(t, ErrUnknownNetwork, ErrConfiguration)
	require.NotErrorIs(t, ErrDeploymentFile, ErrConfiguration)
}

func Test_Set_Validate_DuplicateChainID(t *testing.T) {
	t.Parallel()

	set := testSet()
	dup := set["arbitrumsepolia"]
	dup.ChainID = 11155111
	set.Put(dup)

	err := set.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "chainId 11155111 already used")
}

func Test_Record_Hook(t *testing.T) {
	t.Parallel()

	hook := common.HexToAddress("0x4444444444444444444444444444444444444444")
	r := NewRecord("sepolia", 11155111, sepoliaClient, sepoliaMailbox, hook)
	assert.Equal(t, hook, r.Hook())

	r.ConstructorArgs = nil
	assert.Equal(t, common.Address{}, r.Hook())
}

func Test_Set_NamesAndClone(t *testing.T) {
	t.Parallel()

	set := testSet()
	assert.Equal(t, []string{"arbitrumsepolia", "sepolia"}, set.Names())

	clone := set.Clone()
	delete(clone, "sepolia")
	assert.Len(t, set, 2)
	assert.Len(t, clone, 1)
}
