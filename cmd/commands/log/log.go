package log

import "github.com/spf13/cobra"

// NewCommand returns the "log" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and manage the deployment log",
		Long: "View the local log of executed deployment actions and prune old entries.\n\n" +
			"The log is stored locally in ~/.config/dbdeploy/dbdeploy.db.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}
