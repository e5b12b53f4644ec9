package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/actionfile"
	"almpartners/dbdeploy/internal/builtins"
	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/dbcontext"
	"almpartners/dbdeploy/internal/deploylog"
	"almpartners/dbdeploy/internal/engine"
	"almpartners/dbdeploy/internal/logging"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <action>",
		Short: "Run a deployment action against the project database",
		Long: `Run a deployment action against the project database.

Multiactions expand into their leaf steps before anything executes.
Actions that change the database ask for confirmation first; pass
--non-interactive to skip the prompt in scripts and pipelines.

Examples:
  dbdeploy run deploy
  dbdeploy run complete-build --non-interactive
  dbdeploy run data --files customers --files invoices
  dbdeploy run deploy --object-type views
  dbdeploy run deploy --arg tag=v2.1.0 --arg branch=main`,
		Args:         cobra.ExactArgs(1),
		RunE:         runAction,
		SilenceUsage: true,
	}

	cmd.Flags().BoolP("non-interactive", "n", false,
		"Skip the confirmation prompt")
	cmd.Flags().StringSlice("files", nil,
		"Restrict script-running steps to the named files")
	cmd.Flags().String("object-type", "",
		"Restrict deploy to one object directory (functions, views, procedures)")
	cmd.Flags().StringArray("arg", nil,
		"Extra argument passed to actions as name=value (repeatable)")

	return cmd
}

func runAction(cmd *cobra.Command, args []string) error {
	name := args[0]

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return err
	}

	if err := action.CheckPolicy(name, cfg.AllowedActions, cfg.SkippedActions); err != nil {
		return err
	}

	reg := action.Default()
	if err := actionfile.LoadAll(reg, cfg.ActionFiles); err != nil {
		return err
	}

	base := action.Params{}
	if files, _ := cmd.Flags().GetStringSlice("files"); len(files) > 0 {
		base[builtins.ParamFiles] = files
	}
	if objectType, _ := cmd.Flags().GetString("object-type"); objectType != "" {
		base[builtins.ParamObjectType] = objectType
	}
	if len(base) == 0 {
		base = nil
	}

	plan, err := reg.Expand(name)
	if err != nil {
		return err
	}
	if err := applyFlagParams(name, plan, base); err != nil {
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

	rawArgs, _ := cmd.Flags().GetStringArray("arg")
	extraArgs, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")

	c := dbcontext.New(cfg, extraArgs)
	defer c.Close()

	repo, err := deploylog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()
	rec := &recorder{repo: repo, database: cfg.TargetDatabaseName, params: base}

	report, err := engine.Run(cmd.Context(), c, plan, engine.Options{
		NonInteractive: nonInteractive,
		Logger:         logging.WithModule("engine"),
		Recorder:       rec,
	})
	if errors.Is(err, engine.ErrAborted) {
		rec.Record(name, 0, deploylog.OutcomeAborted, "")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: completed %d step(s)\n",
		name, len(report.Steps))
	return nil
}

// applyFlagParams merges command-line parameters into the invocations
// whose actions recognize them, so a flag on a multiaction does not fail
// steps that take no options. Flags are the outermost overrides; values
// set by action files or multiaction steps win. A flag no step of the
// plan recognizes is an error.
func applyFlagParams(name string, plan action.Plan, flags action.Params) error {
	for key := range flags {
		recognized := false
		for _, inv := range plan {
			if inv.Action.Recognizes(key) {
				recognized = true
				break
			}
		}
		if !recognized {
			return fmt.Errorf("no step of %q recognizes option %q", name, key)
		}
	}

	for i, inv := range plan {
		accepted := action.Params{}
		for key, value := range flags {
			if inv.Action.Recognizes(key) {
				accepted[key] = value
			}
		}
		if len(accepted) > 0 {
			plan[i].Params = action.Merge(accepted, inv.Params)
		}
	}
	return nil
}

// parseArgs turns repeated name=value flags into the argument map actions
// read through the execution context. Repeating a name appends.
func parseArgs(raw []string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(raw))
	for _, pair := range raw {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --arg %q (want name=value)", pair)
		}
		out[name] = append(out[name], value)
	}
	return out, nil
}

// recorder bridges engine step outcomes into the deployment log.
type recorder struct {
	repo     deploylog.Repository
	database string
	params   action.Params
}

func (r *recorder) Record(actionName string, duration time.Duration, outcome, detail string) {
	entry := &deploylog.Entry{
		Action:     actionName,
		Database:   r.database,
		Outcome:    outcome,
		Detail:     detail,
		DurationMs: duration.Milliseconds(),
	}
	if len(r.params) > 0 {
		if data, err := json.Marshal(r.params); err == nil {
			entry.Params = string(data)
		}
	}
	// Logging must never fail the deployment itself.
	_ = r.repo.Save(entry)
}
