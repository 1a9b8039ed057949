package deposits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/events"
	"winery-tank-backend/internal/log"
	"winery-tank-backend/internal/notification"
	"winery-tank-backend/internal/tank"
)

// ErrSuperseded is returned by Refresh when the same caller started a
// newer refresh before this one completed; its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// pollKey keys the background poll apart from every bearer token, so
// polling and user refreshes never cancel each other.
const pollKey = "\x00poll"

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Service keeps the current tank list. Every refresh rebuilds the whole
// list from a fresh fetch; nothing is merged with the previous one.
type Service struct {
	cfg        *config.Config
	fetcher    Fetcher
	workerPool *notification.WorkerPool
	publisher  events.Publisher

	mu          sync.RWMutex
	views       []tank.View
	loaded      bool
	refreshedAt time.Time
	seq         uint64
	applied     uint64
	inflight    map[string]inflight
}

// NewService creates the deposits service. workerPool may be nil when web
// push is not configured.
func NewService(cfg *config.Config, fetcher Fetcher, workerPool *notification.WorkerPool, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		cfg:        cfg,
		fetcher:    fetcher,
		workerPool: workerPool,
		publisher:  publisher,
		inflight:   make(map[string]inflight),
	}
}

// Refresh fetches and resolves the deposit list with token and returns it.
// A refresh still in flight for the same token is cancelled first; refreshes
// for other tokens run side by side. The shared list takes the result of the
// most recently issued refresh that succeeded and is never overwritten by an
// older one.
//
// On failure the previous list is left untouched and returned with the error.
func (s *Service) Refresh(ctx context.Context, token string) ([]tank.View, error) {
	return s.refresh(ctx, token, token)
}

func (s *Service) refresh(ctx context.Context, key, token string) ([]tank.View, error) {
	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.seq++
	seq := s.seq
	s.inflight[key] = inflight{seq: seq, cancel: cancel}
	s.mu.Unlock()
	defer s.finish(key, seq, cancel)

	raws, err := s.fetcher.FetchDeposits(fetchCtx, token)
	if err != nil {
		if s.superseded(key, seq) {
			return s.Views(), ErrSuperseded
		}
		log.Warn(ctx, "deposit fetch failed, keeping previous tank list", log.Err(err))
		return s.Views(), fmt.Errorf("failed to fetch deposits: %w", err)
	}

	for _, raw := range raws {
		if err := tank.Validate(raw); err != nil {
			log.Warn(ctx, "deposit record failed integrity check", log.Deposit(raw.DepositID), log.Err(err))
		}
	}
	views := tank.ResolveAll(raws)
	now := time.Now().UTC()

	s.mu.Lock()
	if cur, ok := s.inflight[key]; !ok || cur.seq != seq {
		s.mu.Unlock()
		return s.Views(), ErrSuperseded
	}
	if seq < s.applied {
		// A refresh issued later already replaced the list.
		s.mu.Unlock()
		return cloneViews(views), nil
	}
	prev, hadPrev := s.views, s.loaded
	s.views = views
	s.loaded = true
	s.refreshedAt = now
	s.applied = seq
	s.mu.Unlock()

	log.Debug(ctx, "tank list refreshed", slog.Int("tanks", len(views)))
	if hadPrev {
		s.announce(ctx, tank.Diff(prev, views), now)
	}
	return cloneViews(views), nil
}

// finish releases the in-flight slot of key if it still belongs to seq.
func (s *Service) finish(key string, seq uint64, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.inflight[key]; ok && cur.seq == seq {
		delete(s.inflight, key)
	}
}

// superseded reports whether a newer refresh for key was issued after seq.
// The slot of a running refresh is only released by that refresh itself,
// so a missing slot means a newer one replaced it and already finished.
func (s *Service) superseded(key string, seq uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.inflight[key]
	return !ok || cur.seq != seq
}

// announce publishes transitions and queues availability notifications.
func (s *Service) announce(ctx context.Context, transitions []tank.Transition, at time.Time) {
	for _, t := range transitions {
		log.Info(ctx, "tank state changed", log.Deposit(t.DepositID),
			slog.String("from", t.From.String()), slog.String("to", t.To.String()))

		if err := s.publisher.Publish(ctx, t, at); err != nil {
			log.Warn(ctx, "failed to publish tank state event", log.Deposit(t.DepositID), log.Err(err))
		}
		if t.To.Available() && s.workerPool != nil {
			s.workerPool.Dispatch(ctx, notification.Job{DepositID: t.DepositID, Title: t.Title})
		}
	}
}

// Views returns the current tank list.
func (s *Service) Views() []tank.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneViews(s.views)
}

// View returns the current view of one tank.
func (s *Service) View(depositID int64) (tank.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.views {
		if v.DepositID == depositID {
			return v, true
		}
	}
	return tank.View{}, false
}

// RefreshedAt is the time of the last successful refresh.
func (s *Service) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Run refreshes the list on the configured interval with the service token
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Upstream.PollEnabled {
		log.Info(ctx, "deposit polling is disabled")
		return
	}
	log.Info(ctx, "starting deposit polling", slog.Duration("interval", s.cfg.Upstream.PollInterval))

	s.pollOnce(ctx)

	timer := time.NewTimer(s.cfg.Upstream.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "deposit polling shutting down")
			return
		case <-timer.C:
			s.pollOnce(ctx)
			timer.Reset(s.cfg.Upstream.PollInterval)
		}
	}
}

// pollOnce relies on Refresh to log fetch failures.
func (s *Service) pollOnce(ctx context.Context) {
	_, _ = s.refresh(ctx, pollKey, "")
}

func cloneViews(views []tank.View) []tank.View {
	if views == nil {
		return []tank.View{}
	}
	return append([]tank.View(nil), views...)
}
