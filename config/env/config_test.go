package env

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	fileCfg = &Config{
		Onchain: OnchainConfig{
			KMS: KMSConfig{
				KeyID:      "f1a2b3c4",
				KeyRegion:  "us-west-1",
				AWSProfile: "deployer",
			},
			EVM: EVMConfig{
				DeployerKey: "0xabc",
			},
		},
		Explorer: ExplorerConfig{APIKey: "file-api-key"},
		Registry: RegistryConfig{
			URL: "https://raw.githubusercontent.com/hyperlane-xyz/hyperlane-registry/main",
		},
	}

	envVars = map[string]string{
		"ONCHAIN_KMS_KEY_ID":       "123",
		"ONCHAIN_KMS_KEY_REGION":   "us-east-1",
		"AWS_PROFILE":              "ops",
		"ONCHAIN_EVM_DEPLOYER_KEY": "0x123",
		"EXPLORER_API_KEY":         "env-api-key",
		"HYPERLANE_REGISTRY_URL":   "https://registry.example.com",
		"HYPERLANE_REGISTRY_DIR":   "/tmp/registry",
	}

	legacyEnvVars = map[string]string{
		"KMS_DEPLOYER_KEY_ID":     "123",
		"KMS_DEPLOYER_KEY_REGION": "us-east-1",
		"AWS_PROFILE":             "ops",
		"PRIVATE_KEY":             "0x123",
		"ETHERSCAN_API_KEY":       "env-api-key",
		// These values do not have a legacy equivalent
		"HYPERLANE_REGISTRY_URL": "https://registry.example.com",
		"HYPERLANE_REGISTRY_DIR": "/tmp/registry",
	}

	envCfg = &Config{
		Onchain: OnchainConfig{
			KMS: KMSConfig{
				KeyID:      "123",
				KeyRegion:  "us-east-1",
				AWSProfile: "ops",
			},
			EVM: EVMConfig{
				DeployerKey: "0x123",
			},
		},
		Explorer: ExplorerConfig{APIKey: "env-api-key"},
		Registry: RegistryConfig{
			URL: "https://registry.example.com",
			Dir: "/tmp/registry",
		},
	}
)

func Test_Load(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	tests := []struct {
		name       string
		beforeFunc func(t *testing.T)
		givePath   string
		want       *Config
	}{
		{
			name:     "load from file",
			givePath: "./testdata/config.yml",
			want:     fileCfg,
		},
		{
			name:     "load from empty file and no env vars",
			givePath: "./testdata/empty.yml",
			want:     &Config{},
		},
		{
			name: "override with env",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, envVars)
			},
			givePath: "./testdata/config.yml",
			want:     envCfg,
		},
		{
			name: "fallback to env when file not found",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, envVars)
			},
			givePath: "./testdata/missing.yml",
			want:     envCfg,
		},
	}

	for _, tt := range tests { //nolint:paralleltest // see comment in setupEnvVars
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			if tt.beforeFunc != nil {
				tt.beforeFunc(t)
			}

			got, err := Load(tt.givePath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_LoadEnv(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	clearEnvVars(t)
	setupEnvVars(t, envVars)

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, envCfg, got)
}

func Test_LoadEnv_Legacy(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	clearEnvVars(t)
	setupEnvVars(t, legacyEnvVars)

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, envCfg, got)
}

func Test_LoadEnv_PreferredOverLegacy(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	clearEnvVars(t)
	t.Setenv("ONCHAIN_EVM_DEPLOYER_KEY", "0xpreferred")
	t.Setenv("PRIVATE_KEY", "0xlegacy")

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "0xpreferred", got.Onchain.EVM.DeployerKey)
}

func Test_OnchainConfig_HasSigner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give OnchainConfig
		want bool
	}{
		{name: "nothing set", give: OnchainConfig{}, want: false},
		{name: "raw key", give: OnchainConfig{EVM: EVMConfig{DeployerKey: "0x1"}}, want: true},
		{name: "kms key", give: OnchainConfig{KMS: KMSConfig{KeyID: "id", KeyRegion: "us-east-1"}}, want: true},
		{name: "kms key without region", give: OnchainConfig{KMS: KMSConfig{KeyID: "id"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.give.HasSigner())
		})
	}
}

func Test_YAML_Unmarshal(t *testing.T) {
	t.Parallel()

	b, err := os.ReadFile("./testdata/config.yml")
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(b, &cfg))
	assert.Equal(t, *fileCfg, cfg)
}

// setupEnvVars sets up the environment variables for the test.
//
// CAUTION: Because this function uses t.Setenv which affects the entire process, tests which call
// this function cannot be run in parallel.
func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

// clearEnvVars blanks every bound variable. Viper ignores empty variables.
func clearEnvVars(t *testing.T) {
	t.Helper()

	for _, key := range EnvVars() {
		t.Setenv(key, "")
	}
}
