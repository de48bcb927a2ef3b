package syncengine

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
)

// Snapshot is what subscribers observe.
type Snapshot struct {
	State      models.SyncState
	LastResult *models.SyncResult
}

func (e *Engine) State() models.SyncState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastResult is the result of the most recent cycle, nil before the first.
func (e *Engine) LastResult() *models.SyncResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return nil
	}
	r := *e.last
	return &r
}

func (e *Engine) setState(s models.SyncState) {
	e.mu.Lock()
	e.state = s
	e.publishLocked()
	e.mu.Unlock()
}

// record stores res as the last result and moves to state.
func (e *Engine) record(res models.SyncResult, state models.SyncState) {
	e.mu.Lock()
	e.last = &res
	e.state = state
	e.publishLocked()
	e.mu.Unlock()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{State: e.state}
	if e.last != nil {
		r := *e.last
		s.LastResult = &r
	}
	return s
}

// publishLocked hands the newest snapshot to every subscriber, replacing
// one that was not consumed yet.
func (e *Engine) publishLocked() {
	s := e.snapshotLocked()
	for ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel that receives the current snapshot and then
// every change until ctx is done. Slow readers only see the latest value.
func (e *Engine) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	ch <- e.snapshotLocked()
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.subs, ch)
		close(ch)
		e.mu.Unlock()
	}()

	return ch
}
