package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCommand(g *globalFlags) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}
	accountCmd.AddCommand(newAccountCreateCommand(g))
	return accountCmd
}

func newAccountCreateCommand(g *globalFlags) *cobra.Command {
	var p string

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create an account with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.teller.CreateAccount(context.Background(), args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&p, "pin", "", "4-digit PIN (required)")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}
