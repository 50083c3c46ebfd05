package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smartcontractkit/mailbox-client-deployments/chain/evm/provider"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
)

// Names of the persistent flags of the root command.
const (
	flagConfig         = "config"
	flagNetworksFile   = "networks-file"
	flagDeployments    = "deployments"
	flagArtifact       = "artifact"
	flagConfirmTimeout = "confirm-timeout"
)

// defaultNetworks is the shipped pair.
var defaultNetworks = []string{"sepolia", "arbitrumsepolia"}

// globalFlags are the values of the persistent flags.
type globalFlags struct {
	config         string
	networksFiles  []string
	deployments    string
	artifact       string
	confirmTimeout time.Duration
}

// register adds the persistent flags to the root command.
func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.config, flagConfig, "", "YAML file with secrets and endpoints; environment variables override it")
	fs.StringSliceVar(&g.networksFiles, flagNetworksFile, nil, "Network manifest overriding the built-in networks by name (repeatable)")
	fs.StringVar(&g.deployments, flagDeployments, deployment.DefaultPath, "Deployment file")
	fs.StringVar(&g.artifact, flagArtifact, contracts.DefaultArtifactPath, "Hardhat artifact of MockClient")
	fs.DurationVar(&g.confirmTimeout, flagConfirmTimeout, provider.DefaultConfirmTimeout, "Maximum wait for each transaction")
}

// networksFlag adds the --networks flag.
func networksFlag(cmd *cobra.Command, defaults []string, usage string) {
	cmd.Flags().StringSliceP("networks", "n", defaults, usage)
}

// MustStringSlice returns the slice value, ignoring the error.
// Safe to use with registered flags where GetStringSlice cannot fail.
func MustStringSlice(s []string, _ error) []string { return s }

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }
