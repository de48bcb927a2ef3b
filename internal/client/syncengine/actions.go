package syncengine

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
)

// Action is a request to the engine from the presentation layer.
type Action interface {
	isAction()
}

// AutoSync runs a cycle started by the scheduler.
type AutoSync struct {
	Trigger models.SyncTrigger
}

// ManualSync runs a cycle on user request; Force resubmits everything.
type ManualSync struct {
	Force bool
}

type ResolveConflict struct {
	ConflictID int64
	Resolution models.Resolution
}

// RetryFailed resubmits every entity in ERROR.
type RetryFailed struct{}

func (AutoSync) isAction()        {}
func (ManualSync) isAction()      {}
func (ResolveConflict) isAction() {}
func (RetryFailed) isAction()     {}

// Dispatch performs a. Sync outcomes are published through LastResult and
// Subscribe; only ResolveConflict can return an error.
func (e *Engine) Dispatch(ctx context.Context, a Action) error {
	switch a := a.(type) {
	case AutoSync:
		trigger := a.Trigger
		if trigger == "" {
			trigger = models.TriggerTimer
		}
		e.PerformSync(ctx, trigger)
	case ManualSync:
		if a.Force {
			e.ForceSyncAll(ctx)
		} else {
			e.PerformSync(ctx, models.TriggerManual)
		}
	case ResolveConflict:
		return e.ResolveConflict(ctx, a.ConflictID, a.Resolution)
	case RetryFailed:
		e.RetryFailed(ctx)
	default:
		return fmt.Errorf("unknown sync action %T", a)
	}
	return nil
}
