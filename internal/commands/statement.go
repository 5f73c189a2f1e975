package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/teller/internal/statement"
	"github.com/cleared-dev/teller/internal/teller"
)

func newStatementCommand(g *globalFlags) *cobra.Command {
	var (
		c     credentials
		asCSV bool
	)

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Show balance and transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				st, err := a.teller.Statement(ctx, h)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asCSV {
					return statement.WriteCSV(out, st.Records)
				}

				fmt.Fprintf(out, "%s has %s on the account.\n\n", st.AccountID, a.money(st.Balance))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tTYPE\tAMOUNT\tCOUNTERPARTY")
				for _, r := range st.Records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Type, r.Amount.StringFixed(2), r.Counterparty)
				}
				return tw.Flush()
			})
		},
	}
	c.register(cmd)
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write records as CSV")
	return cmd
}
