package auth

import (
	"fmt"
	"strings"

	"almpartners/dbdeploy/internal/config"
	"almpartners/dbdeploy/internal/credentials"

	"github.com/spf13/cobra"
)

// store backs the auth commands. Swapped for a mock in tests.
var store = credentials.DefaultStore()

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored database credentials",
		Long: `Manage stored database credentials.

Credentials are stored in the OS keychain. When no key is given, the
credential_key of the project configuration is used.`,
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(RemoveCommand())

	return cmd
}

// resolveKey returns the explicit key argument, falling back to the
// credential_key of the project configuration.
func resolveKey(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		if key := strings.TrimSpace(args[0]); key != "" {
			return key, nil
		}
	}
	configPath, _ := cmd.Flags().GetString("config")
	if cfg, err := config.Load(config.Path(configPath)); err == nil && cfg.CredentialKey != "" {
		return cfg.CredentialKey, nil
	}
	return "", fmt.Errorf("key is required (or set credential_key in the configuration)")
}
