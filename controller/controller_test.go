// =================================================================================
//
//			fox-ambient - https://www.foxhollow.cc/projects/fox-audio/
//
//		 Fox Ambient is a small hearing assistant that routes the microphone
//	  through a light processing chain and straight back out to the speakers
//
//		 Copyright (c) 2024 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fox-ambient/audio"
	"fox-ambient/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

//
// fakes
//

type fakeCapture struct {
	constraints model.CaptureConstraints
	released    atomic.Bool
	releases    atomic.Int32
}

func (c *fakeCapture) Constraints() model.CaptureConstraints { return c.constraints }
func (c *fakeCapture) Read(dst []float32) int                { return 0 }
func (c *fakeCapture) Released() bool                        { return c.released.Load() }

func (c *fakeCapture) Release() error {
	c.releases.Add(1)
	c.released.Store(true)
	return nil
}

type fakeEngine struct {
	state  atomic.Int32
	closes atomic.Int32

	// when set, Close waits on it like a device that is slow to let go
	closeGate chan struct{}
}

func (e *fakeEngine) SampleRate() int          { return 44100 }
func (e *fakeEngine) State() audio.EngineState { return audio.EngineState(e.state.Load()) }

func (e *fakeEngine) Attach(src audio.Capture, process audio.ProcessFunc) error { return nil }

func (e *fakeEngine) Resume(ctx context.Context) error {
	e.state.Store(int32(audio.EngineRunning))
	return nil
}

func (e *fakeEngine) Close() error {
	if e.closeGate != nil {
		<-e.closeGate
	}

	e.closes.Add(1)
	e.state.Store(int32(audio.EngineClosed))
	return nil
}

type fakeBackend struct {
	mu         sync.Mutex
	gate       chan struct{}
	entered    chan struct{}
	acquireErr error
	engineErr  error
	captures   []*fakeCapture
	engines    []*fakeEngine
}

func (b *fakeBackend) Name() string { return "fake" }
func (b *fakeBackend) Probe() error { return nil }
func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) Acquire(ctx context.Context, constraints model.CaptureConstraints) (audio.Capture, error) {
	b.mu.Lock()
	gate, entered, acquireErr := b.gate, b.entered, b.acquireErr
	b.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		// a permission prompt that ignores cancellation
		<-gate
	}

	if acquireErr != nil {
		return nil, acquireErr
	}

	capture := &fakeCapture{constraints: constraints}

	b.mu.Lock()
	b.captures = append(b.captures, capture)
	b.mu.Unlock()

	return capture, nil
}

func (b *fakeBackend) NewEngine(ctx context.Context, options audio.EngineOptions) (audio.Engine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.engineErr != nil {
		return nil, b.engineErr
	}

	engine := &fakeEngine{}
	b.engines = append(b.engines, engine)
	return engine, nil
}

func (b *fakeBackend) acquired() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.captures)
}

func (b *fakeBackend) capture(i int) *fakeCapture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captures[i]
}

func (b *fakeBackend) held() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	held := 0
	for _, c := range b.captures {
		if !c.Released() {
			held++
		}
	}
	return held
}

type fakeReporter struct {
	mu      sync.Mutex
	playing []bool
}

func (r *fakeReporter) SetMetadata(title string, description string) {}

func (r *fakeReporter) SetPlaying(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = append(r.playing, playing)
}

func (r *fakeReporter) calls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.playing...)
}

type fakeObserver struct {
	started  atomic.Int32
	failures sync.Map
	rebuilds atomic.Int32
}

func (o *fakeObserver) SessionStarted(id string) { o.started.Add(1) }
func (o *fakeObserver) StartFailed(kind string)  { o.failures.Store(kind, true) }
func (o *fakeObserver) Rebuilt(reason string)    { o.rebuilds.Add(1) }

func newController(t *testing.T, backend *fakeBackend) (*Controller, *fakeReporter, *fakeObserver) {
	reporter := &fakeReporter{}
	observer := &fakeObserver{}

	c := New(Options{
		Backend:       backend,
		Preferences:   model.DefaultPreferences(),
		MeterInterval: time.Millisecond,
		RestartDelay:  20 * time.Millisecond,
		Reporter:      reporter,
		Observer:      observer,
	})
	t.Cleanup(c.Teardown)

	return c, reporter, observer
}

func waitForStatus(t *testing.T, c *Controller, status model.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Status() == status
	}, 2*time.Second, time.Millisecond, "waiting for %s", status)
}

//
// tests
//

func TestStartAndStop(t *testing.T) {
	backend := &fakeBackend{}
	c, reporter, observer := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))

	snapshot := c.Snapshot()
	assert.Equal(t, model.StatusActive, snapshot.Status)
	assert.NotEmpty(t, snapshot.SessionID)
	assert.Equal(t, 1, backend.held())
	assert.Equal(t, int32(1), observer.started.Load())

	constraints := backend.capture(0).Constraints()
	assert.True(t, constraints.EchoCancellation)
	assert.True(t, constraints.NoiseSuppression)
	assert.False(t, constraints.AutoGainControl)
	assert.Equal(t, 44100, constraints.SampleRate)

	c.Stop()

	snapshot = c.Snapshot()
	assert.Equal(t, model.StatusIdle, snapshot.Status)
	assert.Empty(t, snapshot.SessionID)
	assert.Equal(t, 0, snapshot.Level)
	assert.Equal(t, 0, backend.held())
	assert.Equal(t, int32(1), backend.engines[0].closes.Load())
	assert.Equal(t, []bool{true, false}, reporter.calls())
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 1, backend.acquired())
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	c, reporter, _ := newController(t, &fakeBackend{})

	c.Stop()
	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Empty(t, reporter.calls())
}

func TestAcquireFailureReturnsToIdle(t *testing.T) {
	backend := &fakeBackend{acquireErr: audio.ErrDeviceBusy}
	c, _, observer := newController(t, backend)

	err := c.Start(context.Background())
	require.ErrorIs(t, err, audio.ErrDeviceBusy)

	snapshot := c.Snapshot()
	assert.Equal(t, model.StatusIdle, snapshot.Status)
	assert.Equal(t, UserMessage(err), snapshot.Error)
	assert.Equal(t, "device_busy", snapshot.ErrorKind)
	_, failed := observer.failures.Load("device_busy")
	assert.True(t, failed)

	// the next attempt clears the message
	backend.mu.Lock()
	backend.acquireErr = nil
	backend.mu.Unlock()

	require.NoError(t, c.Start(context.Background()))
	assert.Empty(t, c.Snapshot().Error)
}

func TestEngineFailureReleasesCapture(t *testing.T) {
	backend := &fakeBackend{engineErr: errors.New("no output device")}
	c, _, _ := newController(t, backend)

	err := c.Start(context.Background())
	require.ErrorIs(t, err, audio.ErrEngineUnavailable)

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 1, backend.acquired())
	assert.Equal(t, 0, backend.held())
}

func TestStopDuringStartReleasesEverything(t *testing.T) {
	backend := &fakeBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, _, _ := newController(t, backend)

	result := make(chan error, 1)
	go func() {
		result <- c.Start(context.Background())
	}()

	<-backend.entered
	assert.Equal(t, model.StatusStarting, c.Status())
	assert.ErrorIs(t, c.Start(context.Background()), ErrBusy)

	c.Stop()
	assert.Equal(t, model.StatusStopping, c.Status())

	close(backend.gate)

	assert.ErrorIs(t, <-result, ErrStartCancelled)
	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 0, backend.held())
	assert.Empty(t, backend.engines)
	assert.Empty(t, c.Snapshot().Error)
}

func TestToggleWhileActiveRebuilds(t *testing.T) {
	backend := &fakeBackend{}
	c, _, observer := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))
	first := c.Snapshot().SessionID

	c.ToggleEchoCancel()

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Status == model.StatusActive && s.SessionID != first
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, 2, backend.acquired())
	assert.False(t, backend.capture(1).Constraints().EchoCancellation)
	assert.Equal(t, 1, backend.held())
	assert.Equal(t, int32(1), observer.rebuilds.Load())
}

func TestRapidTogglesRestartOnce(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))

	c.ToggleAutoGain()
	c.ToggleAutoGain()
	c.ToggleAutoGain()

	waitForStatus(t, c, model.StatusActive)
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 2, backend.acquired())
	assert.True(t, backend.capture(1).Constraints().AutoGainControl)
}

func TestToggleWhileIdleOnlyChangesPreference(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	c.ToggleEchoCancel()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 0, backend.acquired())
	assert.False(t, c.Snapshot().Preferences.EchoCancel)
}

func TestStopCancelsPendingRestart(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))
	c.ToggleNoiseSuppress()
	c.Stop()

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 1, backend.acquired())
}

func TestToggleDuringStopKeepsSessionStopped(t *testing.T) {
	backend := &fakeBackend{}
	c, reporter, observer := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))

	closeGate := make(chan struct{})
	backend.engines[0].closeGate = closeGate

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	waitForStatus(t, c, model.StatusStopping)

	c.ToggleEchoCancel()
	close(closeGate)
	<-stopped

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 1, backend.acquired())
	assert.Equal(t, 0, backend.held())
	assert.Equal(t, int32(0), observer.rebuilds.Load())
	assert.False(t, c.Snapshot().Preferences.EchoCancel)
	assert.Equal(t, []bool{true, false}, reporter.calls())
}

func TestToggleAfterStopDuringStartKeepsSessionStopped(t *testing.T) {
	backend := &fakeBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c, _, _ := newController(t, backend)

	result := make(chan error, 1)
	go func() {
		result <- c.Start(context.Background())
	}()
	<-backend.entered

	c.Stop()
	assert.Equal(t, model.StatusStopping, c.Status())

	c.ToggleAutoGain()
	close(backend.gate)

	assert.ErrorIs(t, <-result, ErrStartCancelled)

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 1, backend.acquired())
	assert.Equal(t, 0, backend.held())
	assert.True(t, c.Snapshot().Preferences.AutoGain)
}

func TestRestartWaitsForSettlingAttempt(t *testing.T) {
	backend := &fakeBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c, _, _ := newController(t, backend)

	result := make(chan error, 1)
	go func() {
		result <- c.Start(context.Background())
	}()
	<-backend.entered

	// rebuild while the first attempt is blocked
	c.ToggleEchoCancel()
	assert.Equal(t, model.StatusStopping, c.Status())

	// let the restart timer fire at least once while still settling
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, model.StatusStopping, c.Status())

	backend.mu.Lock()
	gate := backend.gate
	backend.gate = nil
	backend.mu.Unlock()
	close(gate)

	assert.ErrorIs(t, <-result, ErrStartCancelled)

	waitForStatus(t, c, model.StatusActive)
	assert.Equal(t, 1, backend.held())
	assert.False(t, backend.capture(1).Constraints().EchoCancellation)
}

func TestNoiseSuppressionRetunesLiveFilter(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))

	c.mu.Lock()
	live := c.session.graph
	c.mu.Unlock()
	assert.Equal(t, 200.0, live.Filter.Frequency())

	c.ToggleNoiseSuppress()
	assert.Equal(t, 80.0, live.Filter.Frequency())

	waitForStatus(t, c, model.StatusActive)
	require.Eventually(t, func() bool {
		return backend.acquired() == 2 && c.Status() == model.StatusActive
	}, 2*time.Second, time.Millisecond)

	c.mu.Lock()
	rebuilt := c.session.graph
	c.mu.Unlock()
	assert.Equal(t, 80.0, rebuilt.Filter.Frequency())
	assert.False(t, backend.capture(1).Constraints().NoiseSuppression)
}

func TestGainChangesApplyLive(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))
	id := c.Snapshot().SessionID

	c.mu.Lock()
	g := c.session.graph
	c.mu.Unlock()

	assert.Equal(t, 0, c.SetMicGain(0))
	assert.Equal(t, 0.0, g.InputGain.Gain())

	assert.Equal(t, 100, c.SetOutputVolume(150))
	assert.Equal(t, 1.0, g.OutputGain.Gain())

	assert.Equal(t, 90, c.StepOutputVolume(-10))
	assert.Equal(t, 5, c.StepMicGain(5))

	assert.InDelta(t, 0.05, g.InputGain.Gain(), 1e-9)
	assert.InDelta(t, 0.9, g.OutputGain.Gain(), 1e-9)
	assert.Equal(t, id, c.Snapshot().SessionID)
	assert.Equal(t, 1, backend.acquired())
}

func TestConcurrentGainStepsAreNotLost(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})

	c.SetMicGain(0)
	c.SetOutputVolume(0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.StepMicGain(1)
		}()
		go func() {
			defer wg.Done()
			c.StepOutputVolume(2)
		}()
	}
	wg.Wait()

	prefs := c.Snapshot().Preferences
	assert.Equal(t, 20, prefs.MicGain)
	assert.Equal(t, 40, prefs.OutputVolume)
}

func TestSupersededStartIsNotReported(t *testing.T) {
	c, reporter, _ := newController(t, &fakeBackend{})

	require.NoError(t, c.Start(context.Background()))

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	c.Stop()

	// a start report that lost the race with the stop
	c.reportStarted(gen)

	assert.Equal(t, []bool{true, false}, reporter.calls())
}

func TestGainWhileIdleIsRemembered(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})

	c.SetMicGain(-20)
	c.SetOutputVolume(35)
	require.NoError(t, c.Start(context.Background()))

	c.mu.Lock()
	g := c.session.graph
	c.mu.Unlock()

	assert.Equal(t, 0.0, g.InputGain.Gain())
	assert.InDelta(t, 0.35, g.OutputGain.Gain(), 1e-9)
}

func TestLatencyModeRebuilds(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))
	c.CycleLatencyMode()

	require.Eventually(t, func() bool {
		return backend.acquired() == 2 && c.Status() == model.StatusActive
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "balanced", c.Snapshot().Latency)

	// same mode again is not a change
	c.SetLatencyMode(model.LatencyBalanced)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, backend.acquired())
}

func TestTeardownIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	c, _, _ := newController(t, backend)

	require.NoError(t, c.Start(context.Background()))

	c.Teardown()
	c.Teardown()

	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 0, backend.held())
	assert.ErrorIs(t, c.Start(context.Background()), ErrClosed)
}

func TestTeardownDuringStartWaitsForAttempt(t *testing.T) {
	backend := &fakeBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, _, _ := newController(t, backend)

	result := make(chan error, 1)
	go func() {
		result <- c.Start(context.Background())
	}()
	<-backend.entered

	done := make(chan struct{})
	go func() {
		c.Teardown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("teardown returned while an attempt was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(backend.gate)
	<-done

	assert.ErrorIs(t, <-result, ErrStartCancelled)
	assert.Equal(t, model.StatusIdle, c.Status())
	assert.Equal(t, 0, backend.held())
}

func TestTeardownFromIdle(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})
	c.Teardown()
	assert.Equal(t, model.StatusIdle, c.Status())
}

func TestSubscribeSeesTransitions(t *testing.T) {
	c, _, _ := newController(t, &fakeBackend{})

	var mu sync.Mutex
	seen := map[model.Status]bool{}
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen[s.Status] = true
		mu.Unlock()
	})

	require.NoError(t, c.Start(context.Background()))
	c.Stop()
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[model.StatusStarting])
	assert.True(t, seen[model.StatusActive])
	assert.True(t, seen[model.StatusStopping])
	assert.True(t, seen[model.StatusIdle])
}

func TestUserMessagesAreDistinct(t *testing.T) {
	kinds := []error{
		audio.ErrPermissionDenied,
		audio.ErrDeviceNotFound,
		audio.ErrDeviceBusy,
		audio.ErrUnknownCapture,
		audio.ErrEngineUnavailable,
		audio.ErrPlatformUnsupported,
	}

	messages := map[string]bool{}
	for _, kind := range kinds {
		message := UserMessage(&audio.Error{Op: "acquire", Backend: "fake", Kind: kind})
		assert.NotEmpty(t, message)
		messages[message] = true
	}

	assert.Len(t, messages, len(kinds))
	assert.Empty(t, UserMessage(nil))
	assert.Empty(t, UserMessage(ErrStartCancelled))
}
