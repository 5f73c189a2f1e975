package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/teller/internal/commands"
	"github.com/cleared-dev/teller/internal/config"
	"github.com/cleared-dev/teller/internal/model"
	"github.com/cleared-dev/teller/internal/statement"
)

func runTeller(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newLedger initializes a teller directory and returns the --config flag pair.
func newLedger(t *testing.T) []string {
	t.Helper()
	t.Setenv("TELLER_BCRYPT_COST", "4")
	t.Setenv("TELLER_LOG_LEVEL", "error")

	dir := t.TempDir()
	_, err := runTeller(t, "init", dir)
	require.NoError(t, err)
	return []string{"--config", filepath.Join(dir, config.FileName)}
}

func TestInit_WritesConfigAndLedger(t *testing.T) {
	dir := t.TempDir()
	out, err := runTeller(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized teller")

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "teller.db"), cfg.Store.Path)

	_, err = os.Stat(cfg.Store.Path)
	require.NoError(t, err, "ledger database should exist")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := runTeller(t, "init", dir)
	require.NoError(t, err)

	_, err = runTeller(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runTeller(t, "init", dir, "--force")
	require.NoError(t, err)
}

func TestScenario(t *testing.T) {
	flags := newLedger(t)
	run := func(args ...string) (string, error) {
		return runTeller(t, append(append([]string{}, flags...), args...)...)
	}

	out, err := run("account", "create", "A1", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Created account A1")
	_, err = run("account", "create", "A2", "--pin", "5678")
	require.NoError(t, err)

	_, err = run("account", "create", "A1", "--pin", "1111")
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	out, err = run("deposit", "100", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "100.00 INR")

	out, err = run("transfer", "A2", "50", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance: 50.00 INR")

	out, err = run("balance", "--account", "A2", "--pin", "5678")
	require.NoError(t, err)
	assert.Contains(t, out, "A2: 50.00 INR")

	_, err = run("withdraw", "15", "--account", "A1", "--pin", "1234")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	out, err = run("withdraw", "20", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "30.00 INR")

	out, err = run("statement", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "A1 has 30.00 INR")
	assert.Contains(t, out, "Transfer-Out")
	assert.Contains(t, out, "Statement")

	out, err = run("audit")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger ok")
}

func TestStatementCSV(t *testing.T) {
	flags := newLedger(t)
	run := func(args ...string) (string, error) {
		return runTeller(t, append(append([]string{}, flags...), args...)...)
	}

	_, err := run("account", "create", "A1", "--pin", "1234")
	require.NoError(t, err)
	_, err = run("deposit", "40", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)

	out, err := run("statement", "--csv", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)

	recs, err := statement.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.TxDeposit, recs[0].Type)
	assert.Equal(t, model.TxStatement, recs[1].Type)
}

func TestLockoutAndChangePin(t *testing.T) {
	flags := newLedger(t)
	run := func(args ...string) (string, error) {
		return runTeller(t, append(append([]string{}, flags...), args...)...)
	}

	_, err := run("account", "create", "A1", "--pin", "1234")
	require.NoError(t, err)

	_, err = run("change-pin", "--new", "4321", "--confirm", "4321", "--account", "A1", "--pin", "1234")
	require.NoError(t, err)

	_, err = run("balance", "--account", "A1", "--pin", "1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 attempts remaining")

	_, err = run("balance", "--account", "A1", "--pin", "1234")
	assert.ErrorIs(t, err, model.ErrInvalidPin)
	_, err = run("balance", "--account", "A1", "--pin", "1234")
	assert.ErrorIs(t, err, model.ErrLocked)

	_, err = run("balance", "--account", "A1", "--pin", "4321")
	assert.ErrorIs(t, err, model.ErrLocked)
}

func TestLoginUnknownAccount(t *testing.T) {
	flags := newLedger(t)

	_, err := runTeller(t, append(flags, "balance", "--account", "X9", "--pin", "1234")...)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRequiredFlags(t *testing.T) {
	flags := newLedger(t)

	_, err := runTeller(t, append(flags, "deposit", "10", "--account", "A1")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pin")
}

func TestBadAmount(t *testing.T) {
	flags := newLedger(t)

	_, err := runTeller(t, append(flags, "deposit", "ten", "--account", "A1", "--pin", "1234")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}
