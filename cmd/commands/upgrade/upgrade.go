package upgrade

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/actionfile"
	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/dbcontext"
	"almpartners/dbdeploy/internal/deploylog"
	"almpartners/dbdeploy/internal/engine"
	"almpartners/dbdeploy/internal/gitversion"
	"almpartners/dbdeploy/internal/logging"
	"almpartners/dbdeploy/internal/upgrade"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the database version by version",
		Long: `Upgrade the database by running the actions of every upgrade map entry
between the installed version and the target, oldest first. The installed
version is read from the git version table and advanced after each entry,
so an interrupted upgrade resumes where it stopped.

Examples:
  dbdeploy upgrade
  dbdeploy upgrade --version v3.1.0
  dbdeploy upgrade --non-interactive`,
		RunE:         runUpgrade,
		SilenceUsage: true,
	}

	cmd.Flags().String("version", "",
		"Upgrade up to this version instead of the newest one")
	cmd.Flags().BoolP("non-interactive", "n", false,
		"Skip the confirmation prompt")

	return cmd
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return err
	}

	reg := action.Default()
	if err := actionfile.LoadAll(reg, cfg.ActionFiles); err != nil {
		return err
	}

	m, err := upgrade.LoadMap(cfg.UpgradeActionsFile)
	if err != nil {
		return err
	}

	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")

	c := dbcontext.New(cfg, nil)
	defer c.Close()

	installed, err := gitversion.NewRepository(c, cfg.GitTable).Get(cmd.Context())
	if err != nil {
		return err
	}

	target, _ := cmd.Flags().GetString("version")
	entries, err := upgrade.Resolve(m, installed.Tag, target)
	if err != nil {
		return err
	}

	// The policy gate covers every action the upgrade would run, before
	// anything is applied.
	for _, entry := range entries {
		for _, inv := range entry.Actions {
			if err := action.CheckPolicy(inv.Name,
				cfg.AllowedActions, cfg.SkippedActions); err != nil {
				return err
			}
		}
	}

	if !nonInteractive {
		ok, err := confirm(cfg, installed.Tag, entries)
		if err != nil {
			return err
		}
		if !ok {
			return engine.ErrAborted
		}
		c.SetConfirmed()
	}

	repo, err := deploylog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	versions := gitversion.NewRepository(c, cfg.GitTable)
	for _, entry := range entries {
		plan, err := upgrade.Plan([]upgrade.Entry{entry}, reg)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "upgrading to %s (%d step(s))\n",
			entry.Tag, len(plan))
		_, err = engine.Run(cmd.Context(), c, plan, engine.Options{
			NonInteractive: nonInteractive,
			Logger:         logging.WithModule("engine"),
			Recorder:       &recorder{repo: repo, database: cfg.TargetDatabaseName, tag: entry.Tag},
		})
		if err != nil {
			return err
		}

		if err := versions.Set(cmd.Context(), gitversion.Version{
			Repository: cfg.GitRepository,
			Branch:     installed.Branch,
			Tag:        entry.Tag,
		}); err != nil {
			return err
		}

		// Read the marker back so a stamping failure surfaces before the
		// next entry builds on it.
		stamped, err := versions.Get(cmd.Context())
		if err != nil {
			return err
		}
		if stamped.Tag != entry.Tag {
			return fmt.Errorf("database reports version %s after upgrading to %s",
				stamped.Tag, entry.Tag)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "database is now at %s\n", entries[len(entries)-1].Tag)
	return nil
}

func confirm(cfg *config.Config, installed string, entries []upgrade.Entry) (bool, error) {
	from := installed
	if from == "" {
		from = "(none)"
	}
	message := fmt.Sprintf("Upgrade database %s from %s to %s?",
		cfg.TargetDatabaseName, from, entries[len(entries)-1].Tag)

	var lines string
	for _, entry := range entries {
		names := make([]string, len(entry.Actions))
		for i, inv := range entry.Actions {
			names[i] = inv.Name
		}
		lines += fmt.Sprintf("%s: %s\n", entry.Tag, strings.Join(names, ", "))
	}

	var ok bool
	accessible := os.Getenv("ACCESSIBLE") != ""
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Description(lines).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).WithAccessible(accessible)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// recorder writes upgrade step outcomes to the deployment log, tagged
// with the entry version being applied.
type recorder struct {
	repo     deploylog.Repository
	database string
	tag      string
}

func (r *recorder) Record(actionName string, duration time.Duration, outcome, detail string) {
	_ = r.repo.Save(&deploylog.Entry{
		Action:     actionName,
		Database:   r.database,
		Params:     fmt.Sprintf(`{"upgrade_to":%q}`, r.tag),
		Outcome:    outcome,
		Detail:     detail,
		DurationMs: duration.Milliseconds(),
	})
}
