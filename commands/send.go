package commands

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/mailbox-client-deployments/dispatch"
	"github.com/smartcontractkit/mailbox-client-deployments/pipeline"
)

var (
	sendLong = longDesc(`
		Quotes the dispatch fee on the mailbox of the sending network and calls sendHelloWorld
		on the recorded client, paying exactly the quoted fee. Both clients must be recorded in
		the deployment file. When the quote fails nothing is sent.
	`)

	sendExample = examples(`
		# Send the default message
		mailboxctl send --from sepolia --to arbitrumsepolia

		# Send a custom message the other way
		mailboxctl send --from arbitrumsepolia --to sepolia -m "gm"
	`)
)

func newSendCmd(cfg Config, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "send",
		Short:   "Send a message between two clients",
		Long:    sendLong,
		Example: sendExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPipeline(cfg, g, pipelineOptions{})
			if err != nil {
				return err
			}

			in := pipeline.SendInput{
				From:    MustString(cmd.Flags().GetString("from")),
				To:      MustString(cmd.Flags().GetString("to")),
				Message: MustString(cmd.Flags().GetString("message")),
			}
			res, err := p.Send(cmd.Context(), in)
			if err != nil {
				return err
			}

			cmd.Printf("Sent %q from %s to %s\n", in.Message, in.From, in.To)
			cmd.Printf("Fee:   %s wei\n", res.Fee)
			cmd.Printf("Tx:    %s\n", res.TxHash.Hex())
			cmd.Printf("Block: %d\n", res.BlockNumber)

			return nil
		},
	}

	cmd.Flags().String("from", defaultNetworks[0], "Network to send from")
	cmd.Flags().String("to", defaultNetworks[1], "Network of the recipient client")
	cmd.Flags().StringP("message", "m", dispatch.DefaultMessage, "Message to send")

	return cmd
}
