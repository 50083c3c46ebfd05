package commands

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/mailbox-client-deployments/pipeline"
)

var (
	deployLong = longDesc(`
		Deploys a MockClient on every selected network, records the deployments, then enrolls
		every client with the clients of the other networks and sets its interchain security
		module.

		Networks are deployed concurrently. A recorded client is reused when its mailbox matches
		and its code is still on chain, unless --force is set. A failure on one network does not
		stop the others and nothing is rolled back; run the command again to resume.

		When an explorer API key is configured, new clients are verified. Verification failures
		are logged and never fail the command.
	`)

	deployExample = examples(`
		# Deploy and enroll the default pair
		mailboxctl deploy

		# Redeploy on two networks from a custom manifest
		mailboxctl deploy --networks-file networks.local.yaml -n anvil-a,anvil-b --force
	`)
)

func newDeployCmd(cfg Config, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Deploy and enroll clients",
		Long:    deployLong,
		Example: deployExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPipeline(cfg, g, pipelineOptions{
				artifact: true,
				verify:   !MustBool(cmd.Flags().GetBool("skip-verify")),
			})
			if err != nil {
				return err
			}

			out, err := p.DeployAndEnroll(cmd.Context(), pipeline.Input{
				Networks: MustStringSlice(cmd.Flags().GetStringSlice("networks")),
				Force:    MustBool(cmd.Flags().GetBool("force")),
			})
			if len(out.Results) > 0 {
				writeDeployTable(cmd.OutOrStdout(), out)
			}

			return err
		},
	}

	networksFlag(cmd, defaultNetworks, "Networks to deploy to, at least two")
	cmd.Flags().Bool("force", false, "Deploy new clients even when the recorded ones are usable")
	cmd.Flags().Bool("skip-verify", false, "Do not verify new clients on the block explorer")

	return cmd
}

func writeDeployTable(w io.Writer, out pipeline.Output) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Network", "Client", "Deployed", "Enrolled", "Verification", "Error"})
	table.SetAutoWrapText(false)

	for _, r := range out.Results {
		client := ""
		if r.Record != nil {
			client = r.Record.Address.Hex()
		}
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		verified := string(r.Verification)
		if r.Reused {
			verified = "-"
		}

		table.Append([]string{
			r.Network,
			client,
			strconv.FormatBool(r.Deployed),
			strconv.FormatBool(r.Enrolled),
			verified,
			errMsg,
		})
	}

	table.Render()
}
