package auth

import (
	"errors"
	"fmt"

	"almpartners/dbdeploy/internal/credentials"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [key]",
		Short: "Show whether a credential is stored",
		Long: `Show whether a credential is stored for the given key. Without a key
argument the credential_key of the project configuration is used.

Example:
  dbdeploy auth status store-db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(cmd, args)
			if err != nil {
				return err
			}

			_, err = store.GetSecret(key)
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: stored\n", key)
			case errors.Is(err, credentials.ErrSecretNotFound):
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not stored\n", key)
			default:
				return err
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
