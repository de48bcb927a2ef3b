package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Enrol this device with the server",
		Long:  "Enrol this device with the server's enrollment key and store the access token locally.",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			if key == "" {
				var err error
				if key, err = getSecret(cmd.ErrOrStderr(), "Enrollment key"); err != nil {
					return err
				}
			}
			if err := app.auth.Login(cmd.Context(), key); err != nil {
				return err
			}

			id, err := app.auth.DeviceID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "device %s enrolled\n", id)
			return nil
		}),
	}

	cmd.Flags().StringVar(&key, "key", "", "enrollment key (prompted when empty)")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			return app.auth.Logout(cmd.Context())
		}),
	}
}
