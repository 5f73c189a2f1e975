package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/teller/internal/buildinfo"
	"github.com/cleared-dev/teller/internal/config"
)

type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "teller",
		Short:   "Single-session account ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.FileName, "config file")
	pf.StringVar(&g.dbPath, "db", "", "ledger database (overrides config)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(
		newInitCommand(&g),
		newAccountCommand(&g),
		newBalanceCommand(&g),
		newDepositCommand(&g),
		newWithdrawCommand(&g),
		newTransferCommand(&g),
		newChangePinCommand(&g),
		newStatementCommand(&g),
		newAuditCommand(&g),
	)

	return rootCmd
}
