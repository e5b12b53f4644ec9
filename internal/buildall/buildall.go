// Package buildall runs a build across several database projects at once.
// Each project is an independent directory with its own configuration
// file; projects fan out concurrently and the first failure cancels the
// rest.
package buildall

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"almpartners/dbdeploy/internal/config"
)

// Runner executes the build of a single project from its resolved
// configuration.
type Runner func(ctx context.Context, project string, cfg *config.Config) error

// Options control the fanout.
type Options struct {
	// Concurrency bounds how many projects build at once. Zero means
	// unbounded.
	Concurrency int

	// ConfigName is the configuration file looked up inside each
	// project directory. Empty means config.DefaultFileName.
	ConfigName string
}

// Result records the outcome of one project's build.
type Result struct {
	Project  string
	Duration time.Duration
	Err      error
}

// Run builds every project directory with the given runner. The first
// failure cancels the group context; builds still in flight observe the
// cancellation through it. The returned results are ordered like
// projects; the error is the first project failure.
func Run(ctx context.Context, projects []string, run Runner, opts Options) ([]Result, error) {
	if len(projects) == 0 {
		return nil, fmt.Errorf("buildall: no projects given")
	}
	configName := opts.ConfigName
	if configName == "" {
		configName = config.DefaultFileName
	}

	results := make([]Result, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, project := range projects {
		g.Go(func() error {
			start := time.Now()
			err := buildOne(gctx, project, configName, run)
			results[i] = Result{
				Project:  project,
				Duration: time.Since(start),
				Err:      err,
			}
			if err != nil {
				slog.Error("project build failed", "project", project, "error", err)
				return fmt.Errorf("buildall: %s: %w", project, err)
			}
			slog.Info("project build completed", "project", project,
				"duration", results[i].Duration)
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func buildOne(ctx context.Context, project, configName string, run Runner) error {
	info, err := os.Stat(project)
	if err != nil {
		return fmt.Errorf("no such project directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", project)
	}

	cfg, err := config.Load(filepath.Join(project, configName))
	if err != nil {
		return err
	}
	return run(ctx, project, cfg)
}
