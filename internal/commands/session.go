package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/teller/internal/teller"
)

func newBalanceCommand(g *globalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				id, bal, err := a.teller.Snapshot(ctx, h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, a.money(bal))
				return nil
			})
		},
	}
	c.register(cmd)
	return cmd
}

func newDepositCommand(g *globalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit into the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				bal, err := a.teller.Deposit(ctx, h, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Balance after deposit: %s\n", a.money(bal))
				return nil
			})
		},
	}
	c.register(cmd)
	return cmd
}

func newWithdrawCommand(g *globalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw from the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				bal, err := a.teller.Withdraw(ctx, h, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Balance after withdrawal: %s\n", a.money(bal))
				return nil
			})
		},
	}
	c.register(cmd)
	return cmd
}

func newTransferCommand(g *globalFlags) *cobra.Command {
	var c credentials

	cmd := &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Transfer to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				bal, err := a.teller.Transfer(ctx, h, args[0], amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s to %s. Balance: %s\n", a.money(amount), args[0], a.money(bal))
				return nil
			})
		},
	}
	c.register(cmd)
	return cmd
}

func newChangePinCommand(g *globalFlags) *cobra.Command {
	var (
		c                  credentials
		newPin, confirmPin string
	)

	cmd := &cobra.Command{
		Use:   "change-pin",
		Short: "Change the account PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, &c, func(ctx context.Context, a *app, h *teller.Session) error {
				if err := a.teller.ChangePin(ctx, h, newPin, confirmPin); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PIN updated")
				return nil
			})
		},
	}
	c.register(cmd)
	cmd.Flags().StringVar(&newPin, "new", "", "new 4-digit PIN (required)")
	cmd.Flags().StringVar(&confirmPin, "confirm", "", "new PIN again (required)")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}
