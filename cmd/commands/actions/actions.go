package actions

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/actionfile"
	"almpartners/dbdeploy/internal/config"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect registered deployment actions",
	}

	cmd.AddCommand(listCommand())

	return cmd
}

func listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered actions",
		Long: `List registered actions: the built-ins plus any multiactions declared
by the project's action files.

Examples:
  dbdeploy actions list
  dbdeploy actions list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	reg := action.Default()

	// Project action files extend the listing when a configuration is
	// present; listing still works outside a project directory.
	configPath, _ := cmd.Flags().GetString("config")
	if cfg, err := config.Load(config.Path(configPath)); err == nil {
		if err := actionfile.LoadAll(reg, cfg.ActionFiles); err != nil {
			return err
		}
	}

	infos := reg.List()

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "table", "":
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Description)
	}
	return w.Flush()
}
