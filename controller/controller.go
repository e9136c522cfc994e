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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fox-ambient/audio"
	"fox-ambient/graph"
	"fox-ambient/meter"
	"fox-ambient/model"
)

var (
	ErrBusy           = errors.New("a session is already starting or stopping")
	ErrStartCancelled = errors.New("start was cancelled")
	ErrClosed         = errors.New("the controller has been torn down")
)

const DefaultRestartDelay = 100 * time.Millisecond

// Reporter is told when audio starts and stops flowing.
type Reporter interface {
	SetMetadata(title string, description string)
	SetPlaying(playing bool)
}

// Observer receives lifecycle events that do not show up in a snapshot.
type Observer interface {
	SessionStarted(id string)
	StartFailed(kind string)
	Rebuilt(reason string)
}

type Options struct {
	Backend       audio.Backend
	Preferences   model.Preferences
	MeterInterval time.Duration
	RestartDelay  time.Duration
	Reporter      Reporter
	Observer      Observer
}

type Snapshot struct {
	Status      model.Status      `json:"-"`
	State       string            `json:"state"`
	Preferences model.Preferences `json:"preferences"`
	Latency     string            `json:"latency"`
	Level       int               `json:"level"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   string            `json:"error_kind,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Reduction   float64           `json:"compressor_reduction_db"`
	Backend     string            `json:"backend"`
}

type session struct {
	id      uuid.UUID
	capture audio.Capture
	graph   *graph.Graph
	meter   *meter.Loop
}

// close stops the meter first so no report can follow the teardown.
func (s *session) close() {
	if s.meter != nil {
		s.meter.Stop()
	}

	if err := s.graph.Close(); err != nil {
		slog.Warn("Failed to close audio engine: " + err.Error())
	}

	if err := s.capture.Release(); err != nil {
		slog.Warn("Failed to release capture device: " + err.Error())
	}

	slog.Debug("Session torn down", "session", s.id.String())
}

// Controller owns the one live session and serialises every transition
// between Idle, Starting, Active and Stopping.
type Controller struct {
	backend       audio.Backend
	meterInterval time.Duration
	restartDelay  time.Duration
	reporter      Reporter
	observer      Observer

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu             sync.Mutex
	status         model.Status
	prefs          model.Preferences
	session        *session
	generation     uint64
	attemptCancel  context.CancelFunc
	restart        *time.Timer
	restartPending bool
	lastErr        error
	closed         bool
	subscribers    map[int]func(Snapshot)
	nextSubscriber int

	// orders reporter calls so a late "playing" cannot follow a stop
	reportMu sync.Mutex

	level    atomic.Int32
	inflight sync.WaitGroup
}

func New(options Options) *Controller {
	restartDelay := options.RestartDelay
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &Controller{
		backend:       options.Backend,
		meterInterval: options.MeterInterval,
		restartDelay:  restartDelay,
		reporter:      options.Reporter,
		observer:      options.Observer,
		baseCtx:       baseCtx,
		cancelBase:    cancel,
		status:        model.StatusIdle,
		prefs:         options.Preferences,
		subscribers:   make(map[int]func(Snapshot)),
	}
}

//
// lifecycle
//

// Start acquires the microphone and builds the processing graph. It is a
// no-op while Active and fails with ErrBusy while another transition runs.
func (c *Controller) Start(ctx context.Context) error {
	return c.start(ctx, 0, false)
}

func (c *Controller) start(ctx context.Context, scheduled uint64, fromRestart bool) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if fromRestart && scheduled != c.generation {
		c.mu.Unlock()
		return nil
	}

	switch c.status {
	case model.StatusActive:
		c.mu.Unlock()
		return nil
	case model.StatusStarting, model.StatusStopping:
		c.mu.Unlock()
		return ErrBusy
	}

	c.cancelRestartLocked()
	c.generation++
	gen := c.generation
	c.status = model.StatusStarting
	c.lastErr = nil
	prefs := c.prefs

	attemptCtx, cancel := context.WithCancel(ctx)
	c.attemptCancel = cancel
	c.inflight.Add(1)
	c.mu.Unlock()

	defer c.inflight.Done()
	defer cancel()

	slog.Info("Starting audio session", "backend", c.backend.Name(), "generation", gen)
	c.notify()

	sess, err := c.open(attemptCtx, prefs)

	c.mu.Lock()
	c.attemptCancel = nil

	if gen != c.generation {
		// a stop or teardown landed while the attempt was in flight
		c.mu.Unlock()

		if sess != nil {
			sess.close()
		}
		c.settleStopping()

		slog.Info("Discarded superseded start attempt", "generation", gen)
		return ErrStartCancelled
	}

	if err != nil {
		c.status = model.StatusIdle
		c.lastErr = err
		c.mu.Unlock()

		kind := audio.KindOf(err)
		slog.Error("Failed to start audio session: " + err.Error())
		if c.observer != nil {
			c.observer.StartFailed(audio.KindName(kind))
		}
		c.notify()
		return err
	}

	c.session = sess
	c.status = model.StatusActive
	sess.meter.Start(c.baseCtx)
	c.mu.Unlock()

	slog.Info("Audio session active", "session", sess.id.String())

	if c.observer != nil {
		c.observer.SessionStarted(sess.id.String())
	}
	c.reportStarted(gen)
	c.notify()

	return nil
}

// open acquires a capture and builds a graph on it, all or nothing.
func (c *Controller) open(ctx context.Context, prefs model.Preferences) (*session, error) {
	capture, err := audio.AcquireCapture(ctx, c.backend, model.ConstraintsFor(prefs))
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		capture.Release()
		return nil, err
	}

	g, err := graph.Build(ctx, c.backend, capture, prefs)
	if err != nil {
		capture.Release()
		return nil, err
	}

	sess := &session{
		id:      uuid.New(),
		capture: capture,
		graph:   g,
	}
	sess.meter = meter.NewLoop(g.Analyser, c.meterInterval, c.setLevel)

	return sess, nil
}

// settleStopping moves a Stopping controller with no session back to Idle.
func (c *Controller) settleStopping() {
	c.mu.Lock()
	settled := c.status == model.StatusStopping && c.session == nil
	if settled {
		c.status = model.StatusIdle
	}
	c.mu.Unlock()

	if settled {
		c.level.Store(0)
		c.notify()
	}
}

// Stop ends the session, or cancels a start that has not resolved yet.
func (c *Controller) Stop() {
	c.stop(false)
}

// stop bumps the generation and returns it so a rebuild can schedule its
// restart against it. restart marks the stop as part of a rebuild; a plain
// stop clears any pending restart.
func (c *Controller) stop(restart bool) uint64 {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.cancelRestartLocked()
	c.restartPending = restart

	switch c.status {
	case model.StatusStarting:
		c.status = model.StatusStopping
		if c.attemptCancel != nil {
			c.attemptCancel()
		}
		c.mu.Unlock()

		slog.Info("Stop requested while starting")
		c.notify()

	case model.StatusActive:
		sess := c.session
		c.session = nil
		c.status = model.StatusStopping
		c.inflight.Add(1)
		c.mu.Unlock()

		slog.Info("Stopping audio session", "session", sess.id.String())
		c.notify()

		sess.close()
		c.settleStopping()
		c.inflight.Done()

		c.reportStopped()

	default:
		c.mu.Unlock()
	}

	return gen
}

// Teardown stops everything and refuses further starts. It may be called
// from any state and more than once.
func (c *Controller) Teardown() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()

	if !already {
		slog.Debug("Tearing down controller")
		c.stop(false)
	}

	c.inflight.Wait()
	c.settleStopping()
	c.cancelBase()
}

//
// restarts
//

func (c *Controller) cancelRestartLocked() {
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
	c.restartPending = false
}

// rebuild restarts the session so new preferences reach the capture and the
// graph. It only acts on a live or starting session, or on a rebuild that is
// still in flight; a session the user is stopping stays stopped.
func (c *Controller) rebuild(reason string) {
	c.mu.Lock()
	needed := c.status == model.StatusActive || c.status == model.StatusStarting || c.restartPending
	c.mu.Unlock()

	if !needed {
		c.notify()
		return
	}

	slog.Info("Rebuilding audio session: " + reason)
	if c.observer != nil {
		c.observer.Rebuilt(reason)
	}

	gen := c.stop(true)
	c.scheduleRestart(gen)
}

func (c *Controller) scheduleRestart(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation || !c.restartPending {
		return
	}

	c.restart = time.AfterFunc(c.restartDelay, func() {
		c.fireRestart(gen)
	})
}

func (c *Controller) fireRestart(gen uint64) {
	c.mu.Lock()

	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}

	if c.status == model.StatusStarting || c.status == model.StatusStopping {
		// an earlier attempt is still settling, try again later
		c.restart = time.AfterFunc(c.restartDelay, func() {
			c.fireRestart(gen)
		})
		c.mu.Unlock()
		return
	}

	c.restart = nil
	c.restartPending = false
	c.mu.Unlock()

	if err := c.start(c.baseCtx, gen, true); err != nil && !errors.Is(err, ErrStartCancelled) && !errors.Is(err, ErrClosed) {
		slog.Debug("Restart failed: " + err.Error())
	}
}

//
// preferences
//

func (c *Controller) ToggleEchoCancel() {
	c.mu.Lock()
	c.prefs.EchoCancel = !c.prefs.EchoCancel
	c.mu.Unlock()

	c.rebuild("echo cancellation")
}

// ToggleNoiseSuppress retunes the live filter at once; the rebuild that
// follows applies the capture side of the setting.
func (c *Controller) ToggleNoiseSuppress() {
	c.mu.Lock()
	c.prefs.NoiseSuppress = !c.prefs.NoiseSuppress
	if c.session != nil {
		c.session.graph.Filter.SetFrequency(graph.CutoffFor(c.prefs.NoiseSuppress))
	}
	c.mu.Unlock()

	c.rebuild("noise suppression")
}

func (c *Controller) ToggleAutoGain() {
	c.mu.Lock()
	c.prefs.AutoGain = !c.prefs.AutoGain
	c.mu.Unlock()

	c.rebuild("auto gain")
}

func (c *Controller) SetLatencyMode(mode model.LatencyMode) {
	c.mu.Lock()
	changed := c.prefs.Latency != mode
	c.prefs.Latency = mode
	c.mu.Unlock()

	if changed {
		c.rebuild("latency " + mode.String())
	}
}

func (c *Controller) CycleLatencyMode() {
	c.mu.Lock()
	next := c.prefs.Latency.Next()
	c.mu.Unlock()

	c.SetLatencyMode(next)
}

// SetMicGain applies a 0..100 input gain to the live graph without a rebuild.
func (c *Controller) SetMicGain(value int) int {
	return c.updateMicGain(func(int) int { return value })
}

func (c *Controller) StepMicGain(delta int) int {
	return c.updateMicGain(func(current int) int { return current + delta })
}

func (c *Controller) updateMicGain(next func(current int) int) int {
	c.mu.Lock()
	value := model.ClampPercent(next(c.prefs.MicGain))
	c.prefs.MicGain = value
	if c.session != nil {
		c.session.graph.InputGain.SetGain(float64(value) / 100)
	}
	c.mu.Unlock()

	c.notify()
	return value
}

// SetOutputVolume applies a 0..100 output volume to the live graph.
func (c *Controller) SetOutputVolume(value int) int {
	return c.updateOutputVolume(func(int) int { return value })
}

func (c *Controller) StepOutputVolume(delta int) int {
	return c.updateOutputVolume(func(current int) int { return current + delta })
}

func (c *Controller) updateOutputVolume(next func(current int) int) int {
	c.mu.Lock()
	value := model.ClampPercent(next(c.prefs.OutputVolume))
	c.prefs.OutputVolume = value
	if c.session != nil {
		c.session.graph.OutputGain.SetGain(float64(value) / 100)
	}
	c.mu.Unlock()

	c.notify()
	return value
}

//
// reporting
//

// reportStarted tells the reporter about the session started under gen,
// unless a stop or a newer attempt has already replaced it.
func (c *Controller) reportStarted(gen uint64) {
	if c.reporter == nil {
		return
	}

	c.reportMu.Lock()
	defer c.reportMu.Unlock()

	c.mu.Lock()
	current := gen == c.generation && c.status == model.StatusActive
	c.mu.Unlock()

	if !current {
		return
	}

	c.reporter.SetMetadata("Fox Ambient", "Listening through "+c.backend.Name())
	c.reporter.SetPlaying(true)
}

func (c *Controller) reportStopped() {
	if c.reporter == nil {
		return
	}

	c.reportMu.Lock()
	defer c.reportMu.Unlock()

	c.reporter.SetPlaying(false)
}

//
// observation
//

func (c *Controller) setLevel(level int) {
	if c.level.Swap(int32(level)) != int32(level) {
		c.notify()
	}
}

func (c *Controller) Status() model.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Status:      c.status,
		State:       c.status.String(),
		Preferences: c.prefs,
		Latency:     c.prefs.Latency.String(),
		Level:       int(c.level.Load()),
		Error:       UserMessage(c.lastErr),
		Backend:     c.backend.Name(),
	}

	if c.lastErr != nil {
		snapshot.ErrorKind = audio.KindName(audio.KindOf(c.lastErr))
	}

	if c.session != nil {
		snapshot.SessionID = c.session.id.String()
		snapshot.Reduction = c.session.graph.Compressor.Reduction()
	}

	if c.status != model.StatusActive {
		snapshot.Level = 0
	}

	return snapshot
}

// Subscribe registers fn for every state, preference or level change and
// returns a function that removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	subscribers := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
