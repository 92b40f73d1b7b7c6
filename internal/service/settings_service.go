package service

import (
	"context"
	"fmt"
	"sync"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/repository"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

// settingsService caches submissions_open and follows app_settings changes.
// A missing row means open.
type settingsService struct {
	settings repository.SettingsRepository
	feed     realtime.Feed
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu   sync.RWMutex
	open bool

	watchMu  sync.Mutex
	watchers map[chan bool]struct{}

	runMu     sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSettingsService creates the settings observable
func NewSettingsService(settings repository.SettingsRepository, feed realtime.Feed, log *logger.Logger, m *metrics.Metrics) SettingsService {
	return &settingsService{
		settings: settings,
		feed:     feed,
		logger:   log.Named("settings"),
		metrics:  m,
		open:     true,
		watchers: make(map[chan bool]struct{}),
	}
}

// Start pulls the current value, then follows the app_settings topic
func (s *settingsService) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to load settings, assuming submissions are open")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, unsubscribe, err := s.feed.Subscribe(runCtx, realtime.TopicSettings)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to settings: %w", err)
	}

	s.cancel = func() {
		unsubscribe()
		cancel()
	}
	s.done = make(chan struct{})
	go s.run(runCtx, events, s.done)

	s.isRunning = true
	s.logger.WithField("submissions_open", s.SubmissionsOpen()).Info("Settings service started")
	return nil
}

func (s *settingsService) run(ctx context.Context, events <-chan realtime.Event, done chan struct{}) {
	defer close(done)

	for event := range events {
		if event.Key != "" && event.Key != domain.SettingSubmissionsOpen {
			continue
		}
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.WithError(err).Error("Failed to refresh settings after change")
		}
	}
}

// Stop ends the subscription and closes watchers
func (s *settingsService) Stop(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
	}

	s.watchMu.Lock()
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = make(map[chan bool]struct{})
	s.watchMu.Unlock()

	s.isRunning = false
	s.logger.Info("Settings service stopped")
	return nil
}

// SubmissionsOpen returns the cached flag
func (s *settingsService) SubmissionsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Refresh reads the flag from the store and updates the cache
func (s *settingsService) Refresh(ctx context.Context) (bool, error) {
	setting, err := s.settings.Get(ctx, domain.SettingSubmissionsOpen)
	if err != nil {
		return s.SubmissionsOpen(), fmt.Errorf("failed to read %s: %w", domain.SettingSubmissionsOpen, err)
	}

	open := true
	if setting != nil {
		open = setting.BoolValue()
	}
	s.set(open)
	return open, nil
}

// SetSubmissionsOpen stores the flag and announces the change
func (s *settingsService) SetSubmissionsOpen(ctx context.Context, open bool) error {
	value := domain.FormatBool(open)
	if err := s.settings.Set(ctx, domain.SettingSubmissionsOpen, value); err != nil {
		s.logger.WithError(err).Error("Failed to update submissions_open")
		return apperrors.NewInternalError(MsgSomethingWrong, err)
	}

	s.set(open)
	s.logger.WithField("submissions_open", open).Info("Submissions toggled")

	event, err := realtime.NewEvent(realtime.TopicSettings, realtime.EventUpdate, domain.AppSetting{
		Key:   domain.SettingSubmissionsOpen,
		Value: value,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode settings event")
		return nil
	}
	event.Key = domain.SettingSubmissionsOpen

	if err := s.feed.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish settings change")
	}
	return nil
}

func (s *settingsService) set(open bool) {
	s.mu.Lock()
	changed := s.open != open
	s.open = open
	s.mu.Unlock()

	s.metrics.SetSubmissionsOpen(open)
	if !changed {
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- open:
		default:
		}
	}
}

// Watch delivers the current value immediately, then every change
func (s *settingsService) Watch() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	s.watchMu.Lock()
	ch <- s.SubmissionsOpen()
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
