package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
	"github.com/smartcontractkit/mailbox-client-deployments/verification"
)

var (
	verifyLong = longDesc(`
		Verifies the recorded clients on Etherscan compatible block explorers using the
		Etherscan v2 multichain API. The standard JSON input and compiler version are read from
		the Hardhat build info referenced by the artifact.

		Verification is best effort: failures are logged and reported in the table, and the
		command only fails when the configuration or the deployment file cannot be read.
	`)

	verifyExample = examples(`
		# Verify every recorded client
		EXPLORER_API_KEY=... mailboxctl verify

		# Verify one network
		mailboxctl verify -n sepolia

		# Verify the clients listed in a batch file
		mailboxctl verify --batch verify.toml
	`)
)

func newVerifyCmd(cfg Config, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Verify recorded clients on the block explorer",
		Long:    verifyLong,
		Example: verifyExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batchPath := MustString(cmd.Flags().GetString("batch"))
			if batchPath != "" {
				return runVerifyBatch(cmd, cfg, g, batchPath)
			}

			p, err := newPipeline(cfg, g, pipelineOptions{readOnly: true, verify: true})
			if err != nil {
				return err
			}

			statuses, err := p.Verify(cmd.Context(), MustStringSlice(cmd.Flags().GetStringSlice("networks")))
			if err != nil {
				return err
			}
			writeVerifyTable(cmd.OutOrStdout(), statuses)

			return nil
		},
	}

	networksFlag(cmd, nil, "Networks to verify, every recorded network by default")
	cmd.Flags().String("batch", "", "TOML file listing the networks and artifacts to verify")
	cmd.MarkFlagsMutuallyExclusive("networks", "batch")

	return cmd
}

func runVerifyBatch(cmd *cobra.Command, cfg Config, g *globalFlags, batchPath string) error {
	batch, err := verification.LoadBatch(batchPath)
	if err != nil {
		return fmt.Errorf("%w: %w", deployment.ErrConfiguration, err)
	}

	rt, err := loadRuntime(cfg, g)
	if err != nil {
		return err
	}

	set, err := deployment.Load(g.deployments)
	if err != nil {
		return err
	}

	verifier := verification.NewVerifier(cfg.Logger, rt.env.Explorer.APIKey)
	writeVerifyTable(cmd.OutOrStdout(), verifier.VerifyBatch(cmd.Context(), rt.networks, set, batch))

	return nil
}

func writeVerifyTable(w io.Writer, statuses map[string]verification.Status) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Network", "Verification"})

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		table.Append([]string{name, string(statuses[name])})
	}

	table.Render()
}
