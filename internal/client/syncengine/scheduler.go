package syncengine

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/logging"
)

// pingTimeout bounds a single reachability probe.
const pingTimeout = 3 * time.Second

type syncer interface {
	PerformSync(ctx context.Context, trigger models.SyncTrigger) models.SyncResult
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler starts cycles: once at launch, then every Interval and whenever
// the server becomes reachable again.
type Scheduler struct {
	engine      syncer
	client      pinger
	interval    time.Duration
	onlineEvery time.Duration
	log         logging.Logger
}

func NewScheduler(engine syncer, c pinger, interval, onlineEvery time.Duration, l logging.Logger) *Scheduler {
	return &Scheduler{engine: engine, client: c, interval: interval, onlineEvery: onlineEvery, log: l}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.engine.PerformSync(ctx, models.TriggerAppLaunch)

	online := make(chan struct{}, 1)
	go s.watchOnline(ctx, online)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.engine.PerformSync(ctx, models.TriggerTimer)
		case <-online:
			s.log.Info(ctx, "server reachable again")
			s.engine.PerformSync(ctx, models.TriggerNetworkChange)
		}
	}
}

// watchOnline probes the server and signals every offline to online flip.
// The first probe only establishes the baseline.
func (s *Scheduler) watchOnline(ctx context.Context, online chan<- struct{}) {
	if s.onlineEvery <= 0 {
		return
	}

	ticker := time.NewTicker(s.onlineEvery)
	defer ticker.Stop()

	known, up := false, false
	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := s.client.Ping(pctx)
			cancel()

			now := err == nil
			if known && now && !up {
				select {
				case online <- struct{}{}:
				default:
				}
			}
			if known && !now && up {
				s.log.Warn(ctx, "server unreachable", "error", err)
			}
			known, up = true, now

		case <-ctx.Done():
			return
		}
	}
}
