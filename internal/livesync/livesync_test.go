package livesync_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackside/testday/internal/livesync"
	"github.com/trackside/testday/internal/testutils"
)

const (
	interval = 20 * time.Millisecond
	waitFor  = 3 * time.Second
	tick     = 5 * time.Millisecond
)

func TestRunFollowsInitialState(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		enabled  bool
		stateErr error

		wantActive bool
	}{
		"Enabled switch starts polling":   {enabled: true, wantActive: true},
		"Disabled switch does not poll":   {enabled: false},
		"Unreadable switch does not poll": {enabled: true, stateErr: errors.New("read error")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sw := newFakeSwitch(tc.enabled)
			sw.setErr(tc.stateErr)
			var calls atomic.Int32
			s := livesync.New(sw, func(context.Context) error {
				calls.Add(1)
				return nil
			}, interval, livesync.WithDebounce(tick))

			stop := runService(t, s)
			defer stop()

			if !tc.wantActive {
				time.Sleep(5 * interval)
				assert.Zero(t, calls.Load(), "Task should not run while the switch is off")
				assert.False(t, s.Active(), "Active should be false while the switch is off")
				return
			}
			require.Eventually(t, func() bool { return calls.Load() >= 3 }, waitFor, tick, "Task should run repeatedly")
			assert.True(t, s.Active(), "Active should be true while the switch is on")
		})
	}
}

func TestRunTogglesWorker(t *testing.T) {
	t.Parallel()

	sw := newFakeSwitch(false)
	var calls atomic.Int32
	s := livesync.New(sw, func(context.Context) error {
		calls.Add(1)
		return nil
	}, interval, livesync.WithDebounce(tick))

	stop := runService(t, s)
	defer stop()

	sw.flip(true)
	require.Eventually(t, s.Active, waitFor, tick, "Enabling the switch should start the worker")
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, waitFor, tick, "Task should run once enabled")

	sw.flip(false)
	require.Eventually(t, func() bool { return !s.Active() }, waitFor, tick, "Disabling the switch should stop the worker")
	n := calls.Load()
	time.Sleep(5 * interval)
	assert.Equal(t, n, calls.Load(), "Task should not run once disabled")

	sw.flip(true)
	require.Eventually(t, func() bool { return calls.Load() > n }, waitFor, tick, "Enabling again should restart the worker")
}

func TestRunDebouncesBursts(t *testing.T) {
	t.Parallel()

	sw := newFakeSwitch(false)
	s := livesync.New(sw, func(context.Context) error { return nil }, time.Hour, livesync.WithDebounce(200*time.Millisecond))

	stop := runService(t, s)
	defer stop()

	before := sw.reads.Load()
	for range 10 {
		sw.flip(true)
	}
	require.Eventually(t, s.Active, waitFor, tick, "The switch should be applied after the burst")
	time.Sleep(300 * time.Millisecond)
	assert.Less(t, sw.reads.Load()-before, int32(4), "A burst of changes should be applied a few times at most")
}

func TestRunKeepsSinglePassInFlight(t *testing.T) {
	t.Parallel()

	sw := newFakeSwitch(true)
	var inFlight, maxInFlight atomic.Int32
	var calls atomic.Int32
	s := livesync.New(sw, func(ctx context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		calls.Add(1)
		// Slower than the interval.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * interval):
		}
		return nil
	}, interval, livesync.WithDebounce(tick))

	stop := runService(t, s)
	defer stop()

	for range 3 {
		time.Sleep(2 * interval)
		sw.flip(false)
		require.Eventually(t, func() bool { return !s.Active() }, waitFor, tick, "Worker should stop")
		sw.flip(true)
		require.Eventually(t, s.Active, waitFor, tick, "Worker should restart")
	}
	require.Eventually(t, func() bool { return calls.Load() >= 4 }, waitFor, tick, "Task should keep running")
	assert.Equal(t, int32(1), maxInFlight.Load(), "Only one pass should ever be in flight")
}

func TestRunLogsFailuresAndRetries(t *testing.T) {
	t.Parallel()

	rec := &testutils.LogRecorder{}
	sw := newFakeSwitch(true)
	var calls atomic.Int32
	s := livesync.New(sw, func(context.Context) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}, interval, livesync.WithDebounce(tick), livesync.WithLogger(slog.New(rec)))

	stop := runService(t, s)
	defer stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, waitFor, tick, "Task should be retried after a failure")
	assert.True(t, rec.Contains(slog.LevelError, "Live sync pass failed, retrying on next tick"), "Failures should be logged")
}

func TestRunCancellationIsQuiet(t *testing.T) {
	t.Parallel()

	rec := &testutils.LogRecorder{}
	sw := newFakeSwitch(true)
	started := make(chan struct{})
	var once sync.Once
	s := livesync.New(sw, func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}, interval, livesync.WithDebounce(tick), livesync.WithLogger(slog.New(rec)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("Task should start")
	}
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err, "Run should return without error once cancelled")
	case <-time.After(waitFor):
		t.Fatal("Run should return once cancelled")
	}
	assert.False(t, s.Active(), "Worker should be stopped after Run returns")
	assert.Empty(t, rec.Messages(slog.LevelError), "Cancellation should not be logged as an error")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		watchErr  error
		streamErr error
	}{
		"Error when the switch cannot be watched": {watchErr: errors.New("no inotify")},
		"Error when the watcher fails":            {streamErr: errors.New("watcher failure")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sw := newFakeSwitch(false)
			sw.watchErr = tc.watchErr
			s := livesync.New(sw, func(context.Context) error { return nil }, interval)

			errCh := make(chan error, 1)
			go func() { errCh <- s.Run(context.Background()) }()
			if tc.streamErr != nil {
				sw.errs <- tc.streamErr
			}

			select {
			case err := <-errCh:
				require.Error(t, err, "Run should return an error")
			case <-time.After(waitFor):
				t.Fatal("Run should return on watcher errors")
			}
		})
	}
}

// runService runs s in the background and returns a function stopping it.
func runService(t *testing.T, s *livesync.Service) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err, "Run should not return an error")
		case <-time.After(waitFor):
			t.Error("Run did not return after cancellation")
		}
	}
}

type fakeSwitch struct {
	mu      sync.Mutex
	enabled bool
	err     error

	reads    atomic.Int32
	watchErr error
	changes  chan struct{}
	errs     chan error
}

func newFakeSwitch(enabled bool) *fakeSwitch {
	return &fakeSwitch{
		enabled: enabled,
		changes: make(chan struct{}, 1),
		errs:    make(chan error, 1),
	}
}

func (f *fakeSwitch) GetState() (bool, error) {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, f.err
}

func (f *fakeSwitch) Watch(context.Context) (<-chan struct{}, <-chan error, error) {
	if f.watchErr != nil {
		return nil, nil, f.watchErr
	}
	return f.changes, f.errs, nil
}

func (f *fakeSwitch) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// flip sets the state and notifies the watcher, coalescing pending notifications.
func (f *fakeSwitch) flip(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()

	select {
	case f.changes <- struct{}{}:
	default:
	}
}
