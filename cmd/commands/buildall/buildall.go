package buildall

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/actionfile"
	"almpartners/dbdeploy/internal/buildall"
	"almpartners/dbdeploy/internal/builtins"
	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/dbcontext"
	"almpartners/dbdeploy/internal/engine"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildall",
		Short: "Run complete-build across several project directories",
		Long: `Run complete-build in every listed project directory concurrently.
Each directory must contain its own configuration file. Builds never
prompt; buildall is meant for pipelines.

Examples:
  dbdeploy buildall --projects ./store --projects ./billing
  dbdeploy buildall --projects ./store,./billing --concurrency 2`,
		RunE:         runBuildAll,
		SilenceUsage: true,
	}

	cmd.Flags().StringSlice("projects", nil, "Project directories to build")
	cmd.Flags().Int("concurrency", 4, "How many projects build at once")

	return cmd
}

func runBuildAll(cmd *cobra.Command, args []string) error {
	projects, _ := cmd.Flags().GetStringSlice("projects")
	if len(projects) == 0 {
		return fmt.Errorf("--projects is required")
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	results, err := buildall.Run(cmd.Context(), projects, buildProject, buildall.Options{
		Concurrency: concurrency,
	})

	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
			r.Project, r.Duration.Round(time.Millisecond), status)
	}
	return err
}

// buildAction is the action every project builds with.
const buildAction = "complete-build"

// buildProject runs complete-build against one project directory with a
// registry of its own, so projects' action files stay isolated. Each
// project's allow/skip policy is honored the same way a direct run is.
func buildProject(ctx context.Context, project string, cfg *config.Config) error {
	if err := action.CheckPolicy(buildAction, cfg.AllowedActions, cfg.SkippedActions); err != nil {
		return err
	}

	reg := action.New()
	builtins.Register(reg)

	files := make([]string, len(cfg.ActionFiles))
	for i, f := range cfg.ActionFiles {
		files[i] = resolveInProject(project, f)
	}
	if err := actionfile.LoadAll(reg, files); err != nil {
		return err
	}

	plan, err := reg.Expand(buildAction)
	if err != nil {
		return err
	}
	if cfg.GateSubactions {
		for _, inv := range plan {
			if err := action.CheckPolicy(inv.Action.Name,
				cfg.AllowedActions, cfg.SkippedActions); err != nil {
				return err
			}
		}
	}

	// Paths in the configuration are project-relative.
	cfg.DatabasePath = resolveInProject(project, cfg.DatabasePath)
	cfg.ScriptsRoot = resolveInProject(project, cfg.ScriptsRoot)
	cfg.MigrationsPath = resolveInProject(project, cfg.MigrationsPath)

	c := dbcontext.New(cfg, nil)
	defer c.Close()

	_, err = engine.Run(ctx, c, plan, engine.Options{NonInteractive: true})
	return err
}

func resolveInProject(project, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(project, path)
}
