package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/teller/internal/audit"
)

func newAuditCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [account...]",
		Short: "Replay the transaction log and check balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			violations, err := audit.Ledger(context.Background(), a.store, args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range violations {
				fmt.Fprintln(out, v.Error())
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d ledger violations", len(violations))
			}
			fmt.Fprintln(out, "ledger ok")
			return nil
		},
	}
}
