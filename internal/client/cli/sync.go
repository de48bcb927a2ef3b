package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/client/syncengine"
	"github.com/spf13/cobra"
)

// ErrSyncFailed is returned by `sync` when the cycle could not reach the
// server.
var ErrSyncFailed = errors.New("sync failed")

func newSyncCommand(opts *RootOptions) *cobra.Command {
	var force, retryFailed bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes to the server",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			var action syncengine.Action = syncengine.ManualSync{Force: force}
			if retryFailed {
				action = syncengine.RetryFailed{}
			}
			if err := app.engine.Dispatch(cmd.Context(), action); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res := app.engine.LastResult(); res != nil {
				printResult(w, *res)
			}

			switch app.engine.State() {
			case models.StateError:
				return ErrSyncFailed
			case models.StateHasConflicts:
				fmt.Fprintln(w, "unresolved conflicts remain, see `recipesync conflicts`")
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "resubmit every entity")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "resubmit entities that failed before")
	cmd.MarkFlagsMutuallyExclusive("force", "retry-failed")
	return cmd
}

func printResult(w io.Writer, res models.SyncResult) {
	fmt.Fprintf(w, "synced %d, conflicts %d, failed %d\n", res.Synced, res.Conflicts, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync state of the local catalogue",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			ctx := cmd.Context()

			deviceID, err := app.auth.DeviceID(ctx)
			if err != nil {
				return err
			}
			counts, err := app.engine.Counts(ctx)
			if err != nil {
				return err
			}
			last, err := app.engine.LastSync(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "server:\t%s\n", app.config.ServerURL)
			fmt.Fprintf(w, "device:\t%s\n", deviceID)
			fmt.Fprintf(w, "state:\t%s\n", app.engine.State())
			if last.IsZero() {
				fmt.Fprintf(w, "last sync:\tnever\n")
			} else {
				fmt.Fprintf(w, "last sync:\t%s\n", last.Format(time.RFC3339))
			}
			for _, s := range models.AllStatuses {
				fmt.Fprintf(w, "%s:\t%d\n", strings.ToLower(string(s)), counts[s])
			}
			return w.Flush()
		}),
	}
}

func newConflictsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List conflicts waiting for a decision",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			list, err := app.engine.UnresolvedConflicts(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no conflicts")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tENTITY\tLOCAL\tREMOTE")
			for _, c := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s @ %s\t%s @ %s\n",
					c.ID, c.EntityType, c.EntityID,
					compact(c.LocalData), stamp(c.LocalTimestamp),
					compact(c.RemoteData), stamp(c.RemoteTimestamp))
			}
			return w.Flush()
		}),
	}
}

func compact(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprint(m)
	}
	return string(b)
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

var resolutions = map[string]models.Resolution{
	"local":  models.AcceptLocal,
	"remote": models.AcceptRemote,
	"newest": models.AcceptNewest,
}

func newResolveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "resolve <conflict-id> local|remote|newest",
		Short:     "Settle a conflict",
		Long:      "Settle a conflict. `local` keeps and pins the local version, `remote` takes the server's, `newest` keeps whichever was edited last.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"local", "remote", "newest"},
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conflict id %q: %w", args[0], err)
			}
			r, ok := resolutions[strings.ToLower(args[1])]
			if !ok {
				return fmt.Errorf("unknown resolution %q (want local, remote or newest)", args[1])
			}

			if err := app.engine.Dispatch(cmd.Context(), syncengine.ResolveConflict{ConflictID: id, Resolution: r}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conflict %d resolved\n", id)
			return nil
		}),
	}
}
