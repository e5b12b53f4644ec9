// Package engine drives an execution plan against the invocation context:
// confirmation gating, the configured transaction discipline, per-step
// logging, and guaranteed halting at the first failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/dbcontext"
)

// ErrAborted is returned when the user declines the confirmation prompt.
var ErrAborted = errors.New("engine: aborted by user")

// Recorder receives one call per executed step. The log command reads the
// entries back; engine execution does not depend on recording succeeding.
type Recorder interface {
	Record(actionName string, duration time.Duration, outcome, detail string)
}

// Options configures one plan execution.
type Options struct {
	// NonInteractive suppresses the confirmation prompt.
	NonInteractive bool

	// TransactionMode overrides the configured discipline. Empty means
	// use the context configuration.
	TransactionMode string

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Recorder, when non-nil, receives every step outcome.
	Recorder Recorder

	// Confirm replaces the interactive prompt. Intended for testing.
	Confirm func(message string) (bool, error)
}

// Run executes the plan sequentially against dbctx.
//
// Steps never run concurrently; later actions depend on the side effects
// of earlier ones. A failing step halts the plan immediately regardless of
// transaction mode. The caller owns dbctx and must Close it; Run resolves
// the transaction it opened on every path.
func Run(ctx context.Context, dbctx *dbcontext.Context, plan action.Plan, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.TransactionMode
	if mode == "" {
		mode = dbctx.Config().TransactionMode
	}

	report := &Report{}

	if plan.AffectsDatabase() && !opts.NonInteractive && !dbctx.Confirmed() {
		ok, err := confirm(dbctx, opts)
		if err != nil {
			return report, fmt.Errorf("engine: confirmation prompt failed: %w", err)
		}
		if !ok {
			report.State = Aborted
			logger.Info("execution aborted by user")
			return report, ErrAborted
		}
		dbctx.SetConfirmed()
	}

	for _, inv := range plan {
		affects := inv.Action.AffectsDatabase

		switch mode {
		case config.TxBeginOnce:
			// One transaction spans the whole plan, opened before the
			// first database-affecting step.
			if affects && !dbctx.InTransaction() {
				if err := dbctx.Begin(ctx); err != nil {
					report.State = Failed
					return report, err
				}
			}
		case config.TxCommitAsYouGo:
			if affects {
				if err := dbctx.Begin(ctx); err != nil {
					report.State = Failed
					return report, err
				}
			}
		}

		logger.Info("executing action", "action", inv.Action.Name)
		start := time.Now()
		err := inv.Action.Run(ctx, dbctx, inv.Params)
		duration := time.Since(start)

		report.record(inv.Action.Name, duration, err)
		record(opts.Recorder, inv.Action.Name, duration, err)

		if err != nil {
			logger.Error("action failed", "action", inv.Action.Name, "error", err)
			if rbErr := dbctx.Rollback(); rbErr != nil {
				logger.Error("rollback failed", "error", rbErr)
			}
			report.State = Failed
			return report, err
		}
		logger.Info("action completed", "action", inv.Action.Name, "duration", duration)

		if mode == config.TxCommitAsYouGo && dbctx.InTransaction() {
			if err := dbctx.Commit(); err != nil {
				report.State = Failed
				return report, err
			}
		}
	}

	if dbctx.InTransaction() {
		if err := dbctx.Commit(); err != nil {
			report.State = Failed
			return report, err
		}
	}

	report.State = Completed
	return report, nil
}

func confirm(dbctx *dbcontext.Context, opts Options) (bool, error) {
	target := dbctx.Config().TargetDatabaseName
	if target == "" {
		target = dbctx.Config().DatabasePath
	}
	message := fmt.Sprintf("You are about to commit changes to database %s. Continue?", target)

	if opts.Confirm != nil {
		return opts.Confirm(message)
	}

	var ok bool
	accessible := os.Getenv("ACCESSIBLE") != ""
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
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

func record(r Recorder, name string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	outcome, detail := "success", ""
	if err != nil {
		outcome, detail = "error", err.Error()
	}
	r.Record(name, duration, outcome, detail)
}
