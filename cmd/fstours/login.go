package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Check that a token is accepted by the server",
		Long: "Probe the server with a token by creating and removing a test tour. " +
			"The token comes from the argument, --token or FSTOURS_TOKEN.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("token")
			if len(args) == 1 {
				token = args[0]
			}
			if token == "" {
				token = os.Getenv("FSTOURS_TOKEN")
			}
			if token == "" {
				return errors.New("no token given")
			}

			if err := clientFromCmd(cmd).Authenticate(cmd.Context(), token); err != nil {
				return err
			}
			printf(cmd, "Token accepted. Export FSTOURS_TOKEN to use it for later commands.\n")
			return nil
		},
	}
}
