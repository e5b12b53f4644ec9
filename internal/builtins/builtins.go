// Package builtins registers the standard deployment actions: the leaf
// steps a database project is built from and the stock multiactions that
// compose them.
package builtins

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/backend"
	"almpartners/dbdeploy/internal/dbcontext"
	"almpartners/dbdeploy/internal/gitversion"
)

// Script directories under the project scripts root, in the order the
// actions walk them.
const (
	dirInit       = "init"
	dirSchema     = "schema"
	dirTables     = "tables"
	dirFunctions  = "functions"
	dirViews      = "views"
	dirProcedures = "procedures"
	dirData       = "data"
	dirTestData   = "testdata"
	dirTests      = "tests"
	dirDowngrade  = "downgrade"
)

// Parameter keys the built-in actions recognize.
const (
	// ParamFiles restricts a script-running action to the named files
	// (base names, extension optional).
	ParamFiles = "files"

	// ParamObjectType restricts deploy to a single object directory
	// (functions, views, procedures).
	ParamObjectType = "object_type"

	// ParamSkipMigrations makes deploy leave structured migrations alone.
	ParamSkipMigrations = "skip_migration_update"

	// ParamSkipGitUpdate makes deploy leave the git version marker alone.
	ParamSkipGitUpdate = "skip_git_update"
)

// out receives the human-readable output of the test and version-info
// actions. Tests redirect it.
var out io.Writer = os.Stdout

// Register installs the built-in actions into reg. Project action files
// are loaded afterwards and may override these by name.
func Register(reg *action.Registry) {
	reg.Register(&action.Action{
		Name:            "init",
		Description:     "Create the target database and its base objects",
		AffectsDatabase: true,
		Run:             runInit,
	})
	reg.Register(&action.Action{
		Name:            "structure",
		Description:     "Deploy schemas, tables and constraints",
		AffectsDatabase: true,
		Options:         []string{ParamFiles},
		Run:             runStructure,
	})
	reg.Register(&action.Action{
		Name:            "deploy",
		Description:     "Apply migrations and deploy functions, views and procedures",
		AffectsDatabase: true,
		Options:         []string{ParamFiles, ParamObjectType, ParamSkipMigrations, ParamSkipGitUpdate},
		Run:             runDeploy,
	})
	reg.Register(&action.Action{
		Name:            "data",
		Description:     "Insert data",
		AffectsDatabase: true,
		Options:         []string{ParamFiles},
		Run:             scriptDirAction(dirData),
	})
	reg.Register(&action.Action{
		Name:            "testdata",
		Description:     "Insert data for testing",
		AffectsDatabase: true,
		Options:         []string{ParamFiles},
		Run:             scriptDirAction(dirTestData),
	})
	reg.Register(&action.Action{
		Name:        "test",
		Description: "Run tests",
		Options:     []string{ParamFiles},
		Run:         runTests,
	})
	reg.Register(&action.Action{
		Name:            "downgrade",
		Description:     "Drop deployed objects and revert migrations",
		AffectsDatabase: true,
		Run:             runDowngrade,
	})
	reg.Register(&action.Action{
		Name:        "version-info",
		Description: "Show the deployed git version and migration revision",
		Run:         runVersionInfo,
	})

	reg.RegisterMulti("complete-build",
		"Run init, deploy, data, testdata and test in order",
		[]action.Step{
			{Name: "init"},
			{Name: "deploy"},
			{Name: "data"},
			{Name: "testdata"},
			{Name: "test"},
		})
	reg.RegisterMulti("deploy-and-data",
		"Run deploy and data in order",
		[]action.Step{
			{Name: "deploy"},
			{Name: "data"},
		})
}

func runInit(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	cfg := exec.Config()
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("builtins: failed to create database directory: %w", err)
		}
	}
	// Opening the connection creates the database file.
	if _, err := exec.DB(); err != nil {
		return err
	}
	return runScriptDir(ctx, exec, dirInit, nil)
}

func runStructure(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	files := params.StringSlice(ParamFiles)
	for _, dir := range []string{dirSchema, dirTables} {
		if err := runScriptDir(ctx, exec, dir, files); err != nil {
			return err
		}
	}
	return nil
}

func runDeploy(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	if !params.Bool(ParamSkipMigrations, false) {
		if err := exec.Migrator().UpgradeToHead(ctx); err != nil {
			return err
		}
	}

	dirs := []string{dirFunctions, dirViews, dirProcedures}
	if t := params.String(ParamObjectType, ""); t != "" {
		switch t {
		case dirFunctions, dirViews, dirProcedures:
			dirs = []string{t}
		default:
			return fmt.Errorf("builtins: unknown object type %q", t)
		}
	}
	files := params.StringSlice(ParamFiles)
	for _, dir := range dirs {
		if err := runScriptDir(ctx, exec, dir, files); err != nil {
			return err
		}
	}

	if params.Bool(ParamSkipGitUpdate, false) {
		return nil
	}
	return updateGitVersion(ctx, exec)
}

// updateGitVersion stamps the version marker table when the invocation
// carries a tag override. Routine deploys without a tag leave the marker
// untouched; the upgrade command stamps it itself per applied entry.
func updateGitVersion(ctx context.Context, exec *dbcontext.Context) error {
	tag := exec.Arg("tag", "")
	if tag == "" {
		return nil
	}
	cfg := exec.Config()
	repo := gitversion.NewRepository(exec, cfg.GitTable)
	return repo.Set(ctx, gitversion.Version{
		Repository: cfg.GitRepository,
		Branch:     exec.Arg("branch", ""),
		Tag:        tag,
	})
}

func runTests(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	scripts, err := listScripts(exec, dirTests, params.StringSlice(ParamFiles))
	if err != nil {
		return err
	}
	b := exec.Backend()
	for _, script := range scripts {
		data, err := os.ReadFile(script)
		if err != nil {
			return fmt.Errorf("builtins: failed to read test script: %w", err)
		}
		fmt.Fprintf(out, "--- %s\n", filepath.Base(script))
		for _, stmt := range backend.SplitStatements(string(data)) {
			rows, err := b.ExecStatement(ctx, stmt)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
		}
	}
	return nil
}

func runDowngrade(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	if err := runScriptDir(ctx, exec, dirDowngrade, nil); err != nil {
		return err
	}
	return exec.Migrator().DowngradeToBase(ctx)
}

func runVersionInfo(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
	cfg := exec.Config()
	v, err := gitversion.NewRepository(exec, cfg.GitTable).Get(ctx)
	if err != nil {
		return err
	}
	rev, err := exec.Migrator().CurrentRevision(ctx)
	if err != nil {
		return err
	}
	if v.Tag == "" {
		fmt.Fprintln(out, "git version: (not stamped)")
	} else {
		fmt.Fprintf(out, "git version: %s", v.Tag)
		if v.Branch != "" {
			fmt.Fprintf(out, " (branch %s)", v.Branch)
		}
		if v.Repository != "" {
			fmt.Fprintf(out, " from %s", v.Repository)
		}
		fmt.Fprintln(out)
	}
	if rev == "" {
		fmt.Fprintln(out, "migration revision: (base)")
	} else {
		fmt.Fprintf(out, "migration revision: %s\n", rev)
	}
	return nil
}

// scriptDirAction returns a leaf body that runs every script in one
// directory under the scripts root.
func scriptDirAction(dir string) action.Func {
	return func(ctx context.Context, exec *dbcontext.Context, params action.Params) error {
		return runScriptDir(ctx, exec, dir, params.StringSlice(ParamFiles))
	}
}

// runScriptDir executes the SQL scripts of one directory in name order.
// A missing directory is not an error; projects only carry the
// directories they use.
func runScriptDir(ctx context.Context, exec *dbcontext.Context, dir string, only []string) error {
	scripts, err := listScripts(exec, dir, only)
	if err != nil {
		return err
	}
	b := exec.Backend()
	for _, script := range scripts {
		slog.Debug("running script", "path", script)
		if err := b.ExecScript(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

// listScripts returns the .sql files of dir under the scripts root,
// sorted by name, optionally restricted to the given base names.
func listScripts(exec *dbcontext.Context, dir string, only []string) ([]string, error) {
	root := filepath.Join(exec.Config().ScriptsRoot, dir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("script directory absent, skipping", "dir", root)
			return nil, nil
		}
		return nil, fmt.Errorf("builtins: failed to read script directory %s: %w", root, err)
	}

	wanted := map[string]bool{}
	for _, name := range only {
		wanted[strings.TrimSuffix(name, ".sql")] = true
	}

	var scripts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if len(wanted) > 0 && !wanted[strings.TrimSuffix(e.Name(), ".sql")] {
			continue
		}
		scripts = append(scripts, filepath.Join(root, e.Name()))
	}
	sort.Strings(scripts)

	if len(wanted) > 0 && len(scripts) < len(wanted) {
		return nil, fmt.Errorf("builtins: not all requested files exist in %s", root)
	}
	return scripts, nil
}
