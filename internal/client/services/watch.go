package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// Notify wakes the watchers of type t. The sync engine calls it after
// applying remote data.
func (s *EntityService) Notify(t syncproto.EntityType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers[t] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *EntityService) subscribe(t syncproto.EntityType) (chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	if s.watchers[t] == nil {
		s.watchers[t] = make(map[chan struct{}]struct{})
	}
	s.watchers[t][ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.watchers[t], ch)
		s.mu.Unlock()
	}
}

// Watch emits the current list of type t and a fresh list after every
// change, until ctx is done. Bursts of changes are coalesced.
func (s *EntityService) Watch(ctx context.Context, t syncproto.EntityType) <-chan []models.Entity {
	return watch(ctx, s, t, func(ctx context.Context) ([]models.Entity, error) {
		return s.GetAll(ctx, t)
	})
}

// WatchByID is Watch for a single entity. A nil value means the entity does
// not exist (any more).
func (s *EntityService) WatchByID(ctx context.Context, t syncproto.EntityType, id string) <-chan *models.Entity {
	return watch(ctx, s, t, func(ctx context.Context) (*models.Entity, error) {
		e, err := s.GetByID(ctx, t, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return e, err
	})
}

func watch[T any](ctx context.Context, s *EntityService, t syncproto.EntityType, load func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	wake, cancel := s.subscribe(t)

	go func() {
		defer close(out)
		defer cancel()

		for {
			v, err := load(ctx)
			if err == nil {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
