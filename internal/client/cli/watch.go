package cli

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/recipesync/internal/client/syncengine"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync in the background and report changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, _ []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			sched := syncengine.NewScheduler(app.engine, app.client,
				app.config.SyncInterval, app.config.OnlineCheckInterval, app.log.With("module", "scheduler"))

			snapshots := app.engine.Subscribe(ctx)
			recipes := app.entities.Watch(ctx, syncproto.TypeRecipe)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				sched.Run(ctx)
			}()
			defer wg.Wait()

			for {
				select {
				case s, ok := <-snapshots:
					if !ok {
						return nil
					}
					fmt.Fprintf(w, "state: %s\n", s.State)
					if s.LastResult != nil {
						printResult(w, *s.LastResult)
					}
				case list, ok := <-recipes:
					if !ok {
						return nil
					}
					fmt.Fprintf(w, "recipes: %d\n", len(list))
				case <-ctx.Done():
					return nil
				}
			}
		}),
	}
}
