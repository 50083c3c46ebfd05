package commands

import (
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/mailbox-client-deployments/pipeline"
)

var (
	statusLong = longDesc(`
		Shows, for every network, the recorded client, whether its code is on chain, the router
		enrolled for each peer domain and the security module currently set. Only view calls are
		made, so no signer is needed.
	`)

	statusExample = examples(`
		# Status of every recorded network
		mailboxctl status

		# Status of the default pair, including a network without a record
		mailboxctl status -n sepolia,arbitrumsepolia
	`)
)

func newStatusCmd(cfg Config, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show recorded clients and their enrollment",
		Long:    statusLong,
		Example: statusExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPipeline(cfg, g, pipelineOptions{readOnly: true})
			if err != nil {
				return err
			}

			statuses, err := p.Status(cmd.Context(), MustStringSlice(cmd.Flags().GetStringSlice("networks")))
			if err != nil {
				return err
			}
			writeStatusTable(cmd.OutOrStdout(), statuses)

			return nil
		},
	}

	networksFlag(cmd, nil, "Networks to show, every recorded network by default")

	return cmd
}

func writeStatusTable(w io.Writer, statuses []pipeline.NetworkStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Network", "Chain ID", "Client", "Code", "Peers", "ISM", "Error"})
	table.SetAutoWrapText(false)

	for _, s := range statuses {
		client := "-"
		if s.Record != nil {
			client = s.Record.Address.Hex()
		}

		peers := make([]string, 0, len(s.Peers))
		for _, peer := range s.Peers {
			mark := "missing"
			if peer.Matches() {
				mark = "ok"
			}
			peers = append(peers, peer.Network+": "+mark)
		}

		ism := "-"
		if s.SecurityModule != (common.Address{}) {
			ism = "unexpected " + s.SecurityModule.Hex()
			if s.SecurityModule == s.ExpectedSecurityModule {
				ism = "ok"
			}
		}

		errMsg := ""
		if s.Err != nil {
			errMsg = s.Err.Error()
		}

		table.Append([]string{
			s.Network,
			strconv.FormatUint(uint64(s.ChainID), 10),
			client,
			strconv.FormatBool(s.CodePresent),
			strings.Join(peers, ", "),
			ism,
			errMsg,
		})
	}

	table.Render()
}
