package cli

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/client/config"
	"github.com/spf13/cobra"
)

// OpenFunc builds the App a command runs against.
type OpenFunc func(ctx context.Context, cfg *config.Config) (*App, error)

// RootOptions is shared by all commands.
type RootOptions struct {
	Config *config.Config
	open   OpenFunc
}

// NewRootCommand creates the recipesync command tree. cfg holds defaults,
// environment and JSON settings; the persistent flags override them.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	return newRootCommand(cfg, NewApp)
}

func newRootCommand(cfg *config.Config, open OpenFunc) *cobra.Command {
	opts := &RootOptions{Config: cfg, open: open}

	cmd := &cobra.Command{
		Use:           "recipesync",
		Short:         "Offline-first recipe catalogue",
		Long:          "Keeps a local recipe catalogue and synchronises it with a recipesync server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cfg.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newRenameCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newConflictsCommand(opts))
	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// withApp opens the App for the duration of one command.
func (o *RootOptions) withApp(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app, err := o.open(cmd.Context(), o.Config)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, app, args)
	}
}
