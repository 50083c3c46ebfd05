package verification

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
)

const (
	batchArtifactJSON = `{
  "_format": "hh-sol-artifact-1",
  "contractName": "MockClient",
  "sourceName": "contracts/MockClient.sol",
  "abi": [
    {"type":"constructor","inputs":[{"name":"_mailbox","type":"address"},{"name":"_hook","type":"address"}]}
  ],
  "bytecode": "0x600a600c600039600a6000f3602a60005260206000f3"
}`
	batchDbgJSON       = `{"_format":"hh-sol-dbg-1","buildInfo":"../../build-info/abc.json"}`
	batchBuildInfoJSON = `{"solcVersion":"0.8.24","solcLongVersion":"0.8.24+commit.e11b9ed9","input":{"language":"Solidity"}}`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// writeArtifacts lays out a Hardhat artifacts directory under dir and returns the artifact path.
func writeArtifacts(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, contracts.DefaultArtifactPath)
	writeFile(t, path, batchArtifactJSON)
	writeFile(t, filepath.Join(dir, "artifacts/contracts/MockClient.sol/MockClient.dbg.json"), batchDbgJSON)
	writeFile(t, filepath.Join(dir, "artifacts/build-info/abc.json"), batchBuildInfoJSON)

	return path
}

func Test_LoadSource(t *testing.T) {
	t.Parallel()

	path := writeArtifacts(t, t.TempDir())

	source, err := LoadSource(path)
	require.NoError(t, err)
	assert.Equal(t, "contracts/MockClient.sol:MockClient", source.Artifact.FullyQualifiedName())
	assert.Equal(t, "0.8.24+commit.e11b9ed9", source.BuildInfo.SolcLongVersion)

	_, err = LoadSource(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func Test_LoadBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    Batch
		wantErr string
	}{
		{
			name: "default artifact",
			give: `
[[contracts]]
network = "sepolia"

[[contracts]]
network = "arbitrumsepolia"
artifact = "other/MockClient.json"
`,
			want: Batch{
				Artifact: contracts.DefaultArtifactPath,
				Contracts: []BatchEntry{
					{Network: "sepolia"},
					{Network: "arbitrumsepolia", Artifact: "other/MockClient.json"},
				},
			},
		},
		{
			name: "explicit artifact",
			give: `
artifact = "build/MockClient.json"

[[contracts]]
network = "sepolia"
`,
			want: Batch{
				Artifact:  "build/MockClient.json",
				Contracts: []BatchEntry{{Network: "sepolia"}},
			},
		},
		{
			name:    "missing network",
			give:    "[[contracts]]\nartifact = \"x.json\"\n",
			wantErr: "contracts[0]: network is required",
		},
		{
			name:    "invalid toml",
			give:    "contracts = [",
			wantErr: "failed to unmarshal toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "verify.toml")
			writeFile(t, path, tt.give)

			got, err := LoadBatch(path)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := LoadBatch(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "failed to read file")
}

func Test_Verifier_VerifyBatch(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{sourceCode: "contract MockClient {}"}
	srv := httptest.NewServer(explorer)
	t.Cleanup(srv.Close)

	cfg, err := network.NewConfig([]network.Network{testNetwork(srv.URL)})
	require.NoError(t, err)

	set := deployment.Set{}
	set.Put(deployment.NewRecord("sepolia", 11155111, testClient, testMailbox, common.Address{}))

	dir := t.TempDir()
	batch := Batch{
		Artifact: writeArtifacts(t, dir),
		Contracts: []BatchEntry{
			{Network: "sepolia"},
			{Network: "unknown"},
			{Network: "sepolia-copy", Artifact: filepath.Join(dir, "missing.json")},
		},
	}

	v, warnings := newTestVerifier(t, "key")

	got := v.VerifyBatch(t.Context(), cfg, set, batch)
	assert.Equal(t, map[string]Status{
		"sepolia":      StatusAlreadyVerified,
		"unknown":      StatusFailed,
		"sepolia-copy": StatusFailed,
	}, got)
	assert.Len(t, warnings(), 2)
}
