// Package env loads the secrets and endpoints of a run from an optional YAML file and the
// environment. Environment variables take precedence over the file.
package env

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// KMSConfig is the configuration for the AWS KMS.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type KMSConfig struct {
	KeyID      string `mapstructure:"key_id" yaml:"key_id"`           // Secret: AWS KMS Key ID
	KeyRegion  string `mapstructure:"key_region" yaml:"key_region"`   // Secret: AWS KMS Key Region (e.g. us-west-1)
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile"` // Optional AWS profile, the default credential chain is used when empty
}

// IsSet reports whether a KMS key is configured.
func (c KMSConfig) IsSet() bool {
	return c.KeyID != "" && c.KeyRegion != ""
}

// EVMConfig is the configuration for the EVM Chains.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type EVMConfig struct {
	DeployerKey string `mapstructure:"deployer_key" yaml:"deployer_key"` // Secret: The private key of the deployer account. Prefer to use KMS keys instead.
}

// OnchainConfig wraps the signer configuration.
type OnchainConfig struct {
	KMS KMSConfig `mapstructure:"kms" yaml:"kms"`
	EVM EVMConfig `mapstructure:"evm" yaml:"evm"`
}

// HasSigner reports whether either a raw deployer key or a KMS key is configured.
func (c OnchainConfig) HasSigner() bool {
	return c.EVM.DeployerKey != "" || c.KMS.IsSet()
}

// ExplorerConfig is the configuration of the block explorer API.
type ExplorerConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // Secret: Etherscan v2 API key, valid for every supported chain
}

// RegistryConfig locates the Hyperlane registry used to resolve mailbox addresses.
type RegistryConfig struct {
	URL string `mapstructure:"url" yaml:"url"` // Base URL of a registry served over HTTPS
	Dir string `mapstructure:"dir" yaml:"dir"` // Local checkout of the registry, preferred over URL
}

// Config wraps the entire environment configuration.
type Config struct {
	Onchain  OnchainConfig  `mapstructure:"onchain" yaml:"onchain"`
	Explorer ExplorerConfig `mapstructure:"explorer" yaml:"explorer"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

var (
	// envBindings maps a config key to the environment variables that can provide it. The first
	// name is preferred, the second is a legacy name still accepted.
	envBindings = map[string][]string{
		"onchain.kms.key_id":       {"ONCHAIN_KMS_KEY_ID", "KMS_DEPLOYER_KEY_ID"},
		"onchain.kms.key_region":   {"ONCHAIN_KMS_KEY_REGION", "KMS_DEPLOYER_KEY_REGION"},
		"onchain.kms.aws_profile":  {"AWS_PROFILE"},
		"onchain.evm.deployer_key": {"ONCHAIN_EVM_DEPLOYER_KEY", "PRIVATE_KEY"},
		"explorer.api_key":         {"EXPLORER_API_KEY", "ETHERSCAN_API_KEY"},
		"registry.url":             {"HYPERLANE_REGISTRY_URL"},
		"registry.dir":             {"HYPERLANE_REGISTRY_DIR"},
	}
)

// EnvVars returns every environment variable read by Load and LoadEnv.
func EnvVars() []string {
	var out []string
	for _, envs := range envBindings {
		out = append(out, envs...)
	}
	slices.Sort(out)

	return out
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
