// Package livesync runs a task periodically while the live sync switch is enabled.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trackside/testday/internal/constants"
)

// Switch is the persisted live sync state.
type Switch interface {
	GetState() (bool, error)
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
}

// Task is one synchronization pass. It must return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Service starts and stops the polling worker following the switch.
type Service struct {
	sw       Switch
	task     Task
	interval time.Duration
	debounce time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type options struct {
	debounce time.Duration
	logger   *slog.Logger
}

// Options represents an optional function to override Service default values.
type Options func(*options)

// WithDebounce sets how long switch changes must settle before being applied.
func WithDebounce(d time.Duration) Options {
	return func(o *options) {
		o.debounce = d
	}
}

// WithLogger sets the logger used by the service.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// New returns a service running task every interval while sw is enabled.
// A non positive interval selects the default one.
func New(sw Switch, task Task, interval time.Duration, args ...Options) *Service {
	opts := options{
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	if interval <= 0 {
		interval = constants.DefaultWatchInterval * time.Second
	}

	return &Service{
		sw:       sw,
		task:     task,
		interval: interval,
		debounce: opts.debounce,
		log:      opts.logger,
	}
}

// Run follows the switch until ctx is cancelled.
//
// The first pass runs as soon as the switch is enabled, then once per interval.
// Disabling the switch cancels the pass in flight and waits for it to return.
func (s *Service) Run(ctx context.Context) error {
	changes, watchErrs, err := s.sw.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch live sync state: %v", err)
	}
	defer s.stop()

	s.log.Info("Live sync service started", "interval", s.interval)
	s.sync(ctx)

	// Armed by the first change only.
	debounceTimer := time.NewTimer(time.Hour)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Live sync service shutting down")
			return nil

		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("live sync state changes channel closed unexpectedly")
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)

		case <-debounceTimer.C:
			s.sync(ctx)

		case err, ok := <-watchErrs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("live sync state errors channel closed unexpectedly")
			}
			if err != nil {
				return fmt.Errorf("live sync state watcher failed: %v", err)
			}
		}
	}
}

// Active reports whether the polling worker is running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}

// sync starts or stops the worker to match the switch. A failed read keeps the current state.
func (s *Service) sync(ctx context.Context) {
	enabled, err := s.sw.GetState()
	if err != nil {
		s.log.Error("Could not read live sync state, keeping the current one", "error", err)
		return
	}

	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()

	switch {
	case enabled && !running:
		s.start(ctx)
	case !enabled && running:
		s.stop()
	}
}

func (s *Service) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.log.Info("Live sync enabled")
	go s.worker(wCtx, s.done)
}

// stop cancels the worker, if any, and waits for it to return.
func (s *Service) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("Live sync disabled")
}

func (s *Service) worker(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.task(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				s.log.Debug("Live sync pass interrupted")
				return
			}
			s.log.Error("Live sync pass failed, retrying on next tick", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
