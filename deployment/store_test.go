package deployment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sepoliaClient  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	sepoliaMailbox = common.HexToAddress("0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766")
	arbClient      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	arbMailbox     = common.HexToAddress("0x598facE78a4302f11E3de0bee1894Da0b2Cb71F8")
)

func testSet() Set {
	set := Set{}
	set.Put(NewRecord("sepolia", 11155111, sepoliaClient, sepoliaMailbox, common.Address{}))
	set.Put(NewRecord("arbitrumsepolia", 421614, arbClient, arbMailbox, common.Address{}))

	return set
}

func Test_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give Set
	}{
		{
			name: "empty set",
			give: Set{},
		},
		{
			name: "two networks",
			give: testSet(),
		},
		{
			name: "non zero hook",
			give: Set{
				"sepolia": NewRecord("sepolia", 11155111, sepoliaClient, sepoliaMailbox,
					common.HexToAddress("0x3333333333333333333333333333333333333333")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "deployments", "mockclient.json")

			require.NoError(t, Save(path, tt.give))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.give, got)
		})
	}
}

func Test_Save_Format(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mockclient.json")
	set := Set{}
	set.Put(NewRecord("sepolia", 11155111, sepoliaClient, sepoliaMailbox, common.Address{}))

	require.NoError(t, Save(path, set))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	want := fmt.Sprintf(`{
  "sepolia": {
    "address": "0x1111111111111111111111111111111111111111",
    "mailbox": "%s",
    "chainId": 11155111,
    "network": "sepolia",
    "constructorArgs": [
      "%s",
      "0x0000000000000000000000000000000000000000"
    ]
  }
}
`, sepoliaMailbox.Hex(), strings.ToLower(sepoliaMailbox.Hex()))
	assert.Equal(t, want, string(b))

	// Saving the same set again is byte for byte identical.
	require.NoError(t, Save(path, set))
	b2, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, b, b2)
}

func Test_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		giveData *string
		want     Set
		wantErr  string
	}{
		{
			name: "missing file is an empty set",
			want: Set{},
		},
		{
			name:     "null document is an empty set",
			giveData: ptr("null"),
			want:     Set{},
		},
		{
			name: "file written by the hardhat scripts",
			giveData: ptr(`{
				"sepolia": {
					"address": "0x1111111111111111111111111111111111111111",
					"mailbox": "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766",
					"chainId": 11155111,
					"network": "sepolia",
					"constructorArgs": [
						"0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766",
						"0x0000000000000000000000000000000000000000"
					]
				}
			}`),
			want: Set{
				"sepolia": NewRecord("sepolia", 11155111, sepoliaClient, sepoliaMailbox, common.Address{}),
			},
		},
		{
			name:     "empty file",
			giveData: ptr(""),
			wantErr:  "deployment file error",
		},
		{
			name:     "not JSON",
			giveData: ptr("not json"),
			wantErr:  "deployment file error",
		},
		{
			name:     "wrong schema",
			giveData: ptr(`["sepolia"]`),
			wantErr:  "deployment file error",
		},
		{
			name:     "short address",
			giveData: ptr(`{"sepolia": {"address": "0x1234", "mailbox": "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766", "chainId": 1, "network": "sepolia"}}`),
			wantErr:  "deployment file error",
		},
		{
			name:     "key does not match network",
			giveData: ptr(`{"sepolia": {"address": "0x1111111111111111111111111111111111111111", "mailbox": "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766", "chainId": 1, "network": "arbitrumsepolia"}}`),
			wantErr:  `network field is "arbitrumsepolia"`,
		},
		{
			name:     "zero chain id",
			giveData: ptr(`{"sepolia": {"address": "0x1111111111111111111111111111111111111111", "mailbox": "0xfFAEF09B3cd11D9b20d1a19bECca54EEC2884766", "chainId": 0, "network": "sepolia"}}`),
			wantErr:  "chainId must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "mockclient.json")
			if tt.giveData != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.giveData), 0o600))
			}

			got, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrDeploymentFile)
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_Load_MissingDirectory(t *testing.T) {
	t.Parallel()

	got, err := Load(filepath.Join(t.TempDir(), "nope", "mockclient.json"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func Test_Save_RejectsInvalidSet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mockclient.json")
	set := Set{"sepolia": {Network: "sepolia", ChainID: 11155111}}

	err := Save(path, set)
	require.ErrorIs(t, err, ErrDeploymentFile)
	assert.NoFileExists(t, path)
}

func ptr[T any](v T) *T { return &v }
