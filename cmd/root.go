package cmd

import (
	"errors"

	"almpartners/dbdeploy/cmd/commands/actions"
	"almpartners/dbdeploy/cmd/commands/auth"
	buildallcmd "almpartners/dbdeploy/cmd/commands/buildall"
	logcmd "almpartners/dbdeploy/cmd/commands/log"
	"almpartners/dbdeploy/cmd/commands/run"
	upgradecmd "almpartners/dbdeploy/cmd/commands/upgrade"
	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/builtins"
	"almpartners/dbdeploy/internal/engine"
	"almpartners/dbdeploy/internal/logging"
	"almpartners/dbdeploy/internal/upgrade"

	"github.com/spf13/cobra"
)

// Exit codes for scripted callers. Anything else that fails exits 1.
const (
	exitOK            = 0
	exitFailure       = 1
	exitNotPermitted  = 2
	exitUnknownAction = 3
	exitCyclicAction  = 4
	exitNoUpgradePath = 5
	exitUserAborted   = 6
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "dbdeploy",
		Short: "A CLI tool for deploying and upgrading SQL databases",
		Long: `dbdeploy runs named deployment actions against a project database:
built-in steps like deploy, data and test, project-defined multiactions,
and git-version-gated upgrades.

Quick start:
  dbdeploy actions list            # Show available actions
  dbdeploy run complete-build      # Build the database from scratch
  dbdeploy run deploy              # Apply migrations and deploy objects
  dbdeploy upgrade                 # Upgrade to the newest version`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logging.Setup(level)
		},
	}

	cmd.PersistentFlags().String("config", "",
		"Path to the project configuration file")
	cmd.PersistentFlags().String("log-level", "info",
		"Log level: debug, info, warn or error")

	cmd.AddCommand(actions.NewCommand())
	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(buildallcmd.NewCommand())
	cmd.AddCommand(logcmd.NewCommand())
	cmd.AddCommand(run.NewCommand())
	cmd.AddCommand(upgradecmd.NewCommand())

	return cmd
}

// Execute runs the root command and maps the failure to an exit code.
// This is called by main.main().
func Execute() int {
	builtins.Register(action.Default())

	err := rootCmd().Execute()
	if err == nil {
		return exitOK
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var notPermitted *action.NotPermittedError
	var unknown *action.UnknownActionError
	var cyclic *action.CyclicActionError
	var noPath *upgrade.NoUpgradePathError

	switch {
	case errors.As(err, &notPermitted):
		return exitNotPermitted
	case errors.As(err, &unknown):
		return exitUnknownAction
	case errors.As(err, &cyclic):
		return exitCyclicAction
	case errors.As(err, &noPath):
		return exitNoUpgradePath
	case errors.Is(err, engine.ErrAborted):
		return exitUserAborted
	}
	return exitFailure
}
