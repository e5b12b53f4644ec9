package auth

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store a credential in the keychain",
		Long: `Store a database credential in the local keychain. Without a key
argument the credential_key of the project configuration is used.

Examples:
  dbdeploy auth set store-db
  dbdeploy auth set`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(cmd, args)
			if err != nil {
				return err
			}

			secret, err := cmd.Flags().GetString("secret")
			if err != nil {
				return err
			}
			secret = strings.TrimSpace(secret)
			if secret == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter credential: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				secret = strings.TrimSpace(string(raw))
			}
			if secret == "" {
				return fmt.Errorf("credential cannot be empty")
			}

			if err := store.SetSecret(key, secret); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved credential for %s\n", key)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("secret", "", "Credential value (prompted for when omitted)")

	return cmd
}
