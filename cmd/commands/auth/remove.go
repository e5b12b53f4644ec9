package auth

import (
	"errors"
	"fmt"

	"almpartners/dbdeploy/internal/credentials"

	"github.com/spf13/cobra"
)

func RemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [key]",
		Short: "Delete a stored credential",
		Long: `Delete a stored credential from the local keychain. Without a key
argument the credential_key of the project configuration is used.

Example:
  dbdeploy auth remove store-db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(cmd, args)
			if err != nil {
				return err
			}

			err = store.DeleteSecret(key)
			if errors.Is(err, credentials.ErrSecretNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No credential stored for %s\n", key)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed credential for %s\n", key)
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
