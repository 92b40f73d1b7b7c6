package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/repository"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

// leaderboardService keeps an in-memory projection of the standings.
// Every insert event triggers a full refetch; events are only a wake-up.
type leaderboardService struct {
	submissions repository.SubmissionRepository
	feed        realtime.Feed
	logger      *logger.Logger
	metrics     *metrics.Metrics
	highlight   time.Duration
	now         func() time.Time

	mu        sync.RWMutex
	scores    []domain.TeamScore
	changed   map[string]time.Time // team id -> highlight expiry
	updatedAt time.Time

	watchMu  sync.Mutex
	watchers map[chan domain.Leaderboard]struct{}

	runMu     sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	timers    map[*time.Timer]struct{}
}

// NewLeaderboardService creates the live projection. highlight is how long a
// team stays marked after a new find.
func NewLeaderboardService(submissions repository.SubmissionRepository, feed realtime.Feed, highlight time.Duration, log *logger.Logger, m *metrics.Metrics) LeaderboardService {
	return &leaderboardService{
		submissions: submissions,
		feed:        feed,
		logger:      log.Named("leaderboard"),
		metrics:     m,
		highlight:   highlight,
		now:         time.Now,
		scores:      []domain.TeamScore{},
		changed:     make(map[string]time.Time),
		watchers:    make(map[chan domain.Leaderboard]struct{}),
		timers:      make(map[*time.Timer]struct{}),
	}
}

// Start loads the standings and follows the submissions topic.
// An insert landing between the fetch and the subscription is picked up by the next event.
func (s *leaderboardService) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.isRunning {
		return nil
	}

	s.logger.Info("Starting leaderboard projection...")

	if err := s.Recompute(ctx); err != nil {
		s.logger.WithError(err).Warn("Initial leaderboard load failed, waiting for the next change")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, unsubscribe, err := s.feed.Subscribe(runCtx, realtime.TopicSubmissions)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to submissions: %w", err)
	}

	s.cancel = func() {
		unsubscribe()
		cancel()
	}
	s.done = make(chan struct{})
	go s.run(runCtx, events, s.done)

	s.isRunning = true
	s.logger.WithField("teams", len(s.Snapshot().Entries)).Info("Leaderboard projection started")
	return nil
}

func (s *leaderboardService) run(ctx context.Context, events <-chan realtime.Event, done chan struct{}) {
	defer close(done)

	for event := range events {
		if event.Type != realtime.EventInsert {
			continue
		}

		if event.TeamID != "" {
			s.markChanged(event.TeamID)
		}

		if err := s.Recompute(ctx); err != nil {
			s.logger.WithError(err).Error("Failed to recompute leaderboard")
		}
	}
}

// Stop ends the subscription and closes every watcher
func (s *leaderboardService) Stop(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping leaderboard projection...")
	s.cancel()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("Leaderboard projection did not stop before the deadline")
	}

	s.mu.Lock()
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.mu.Unlock()

	s.watchMu.Lock()
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = make(map[chan domain.Leaderboard]struct{})
	s.watchMu.Unlock()

	s.isRunning = false
	s.logger.Info("Leaderboard projection stopped")
	return nil
}

// Recompute refetches every scoring fact and replaces the standings
func (s *leaderboardService) Recompute(ctx context.Context) error {
	facts, err := s.submissions.ListScoringFacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scoring facts: %w", err)
	}

	scores := Aggregate(facts)

	s.mu.Lock()
	s.scores = scores
	s.updatedAt = s.now().UTC()
	s.mu.Unlock()

	s.metrics.LeaderboardRecompute()
	s.logger.WithFields(map[string]interface{}{
		"facts": len(facts),
		"teams": len(scores),
	}).Debug("Leaderboard recomputed")

	s.notify()
	return nil
}

func (s *leaderboardService) markChanged(teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.changed[teamID] = s.now().Add(s.highlight)

	var timer *time.Timer
	timer = time.AfterFunc(s.highlight, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		expired := false
		if until, ok := s.changed[teamID]; ok && !s.now().Before(until) {
			delete(s.changed, teamID)
			expired = true
		}
		s.mu.Unlock()

		if expired {
			s.notify()
		}
	})
	s.timers[timer] = struct{}{}
}

// Snapshot returns the current standings with highlight flags
func (s *leaderboardService) Snapshot() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	entries := make([]domain.LeaderboardEntry, len(s.scores))
	for i, score := range s.scores {
		until, ok := s.changed[score.TeamID]
		entries[i] = domain.LeaderboardEntry{
			TeamScore:       score,
			RecentlyChanged: ok && now.Before(until),
		}
	}

	return domain.Leaderboard{Entries: entries, UpdatedAt: s.updatedAt}
}

// Subscribe returns a channel that receives the latest snapshot after every change.
// Slow readers only ever see the newest snapshot.
func (s *leaderboardService) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 1)

	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			if _, ok := s.watchers[ch]; ok {
				delete(s.watchers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// notify pushes the newest snapshot. It is read under watchMu so pushes never go backwards.
func (s *leaderboardService) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	snapshot := s.Snapshot()

	for ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
