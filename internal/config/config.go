// Package config loads the per-project deployment configuration.
//
// Configuration files may be JSON, JSONC (JSON with comments), or YAML,
// selected by file extension. A top-level "BACKEND" key, when present,
// is unwrapped so that tooling-oriented wrapper documents keep working.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "DBDEPLOY_CONFIG"

// DefaultFileName is the config file looked up in the working directory
// when neither the flag nor the environment variable is set.
const DefaultFileName = "dbdeploy.jsonc"

// Transaction disciplines accepted for transaction_mode.
const (
	TxBeginOnce     = "begin_once"
	TxCommitAsYouGo = "commit_as_you_go"
)

// AllowAll is the sentinel accepted in allowed_actions to permit every action.
const AllowAll = "ALL"

// Config holds the fully resolved project configuration. It is immutable
// once loaded; actions read it through the execution context.
type Config struct {
	// TargetDatabaseName is the logical name of the database under deployment.
	TargetDatabaseName string `yaml:"target_database_name"`

	// DatabasePath is the filesystem path of the target SQLite database.
	DatabasePath string `yaml:"database_path"`

	// ScriptsRoot is the directory holding the SQL script tree
	// (schema/, tables/, functions/, views/, procedures/, data/, tests/ ...).
	ScriptsRoot string `yaml:"scripts_root"`

	// MigrationsPath is the directory holding ordered up/down migration files.
	MigrationsPath string `yaml:"migrations_path"`

	// AllowedActions is either the single sentinel "ALL" or an explicit
	// list of action names permitted to run.
	AllowedActions StringOrList `yaml:"allowed_actions"`

	// SkippedActions lists action names denied even when allowed. Skip
	// takes precedence over allow.
	SkippedActions []string `yaml:"skipped_actions"`

	// TransactionMode is one of TxBeginOnce or TxCommitAsYouGo.
	TransactionMode string `yaml:"transaction_mode"`

	// UpgradeActionsFile points at the version-tagged upgrade action map.
	UpgradeActionsFile string `yaml:"upgrade_actions_file"`

	// GitTable is the table recording the deployed repository version.
	GitTable string `yaml:"git_table"`

	// GitRepository is the remote repository URL recorded alongside the
	// deployed version.
	GitRepository string `yaml:"url_of_remote_git_repository"`

	// GateSubactions, when true, re-checks every expanded step of a
	// multiaction against the allow/skip policy instead of gating only
	// the top-level requested name.
	GateSubactions bool `yaml:"gate_subactions"`

	// ActionFiles lists project action files loaded after the built-in
	// actions, in order. Later files override earlier definitions by name.
	ActionFiles []string `yaml:"action_files"`

	// CredentialKey names the keyring entry the auth commands manage
	// when no key argument is given.
	CredentialKey string `yaml:"credential_key"`
}

// StringOrList accepts either a single YAML/JSON scalar or a sequence of
// strings. allowed_actions uses it so the "ALL" sentinel does not need to
// be wrapped in a list.
type StringOrList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringOrList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringOrList(v)
		return nil
	default:
		return fmt.Errorf("config: allowed_actions must be a string or a list of strings")
	}
}

// fileConfig allows the whole document to either be the configuration
// itself or carry it under a BACKEND key.
type fileConfig struct {
	Backend *Config `yaml:"BACKEND"`
	Config  `yaml:",inline"`
}

// Path resolves the configuration path from the explicit flag value, the
// DBDEPLOY_CONFIG environment variable, or the default file name, in that
// order.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultFileName
}

// Load reads, parses, and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: no such file: %s", path)
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".jsonc":
		data = StripComments(data)
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config: %s: unsupported format (want .json, .jsonc, .yaml or .yml)", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg := &fc.Config
	if fc.Backend != nil {
		cfg = fc.Backend
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TransactionMode == "" {
		c.TransactionMode = TxBeginOnce
	}
	if c.GitTable == "" {
		c.GitTable = "git_version"
	}
	if c.ScriptsRoot == "" {
		c.ScriptsRoot = "database"
	}
	if c.UpgradeActionsFile == "" {
		c.UpgradeActionsFile = "upgrade_actions.jsonc"
	}
}

// Validate reports configuration values the engine cannot work with.
func (c *Config) Validate() error {
	switch c.TransactionMode {
	case TxBeginOnce, TxCommitAsYouGo:
	default:
		return fmt.Errorf("config: invalid transaction_mode %q (want %q or %q)",
			c.TransactionMode, TxBeginOnce, TxCommitAsYouGo)
	}
	if len(c.AllowedActions) == 0 {
		return fmt.Errorf("config: allowed_actions must be %q or a non-empty list", AllowAll)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("config: database_path is required")
	}
	return nil
}
