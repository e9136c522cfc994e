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
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hairlesshobo/go-jack"

	"fox-ambient/model"
)

// JackBackend talks to an already running JACK server. A capture and the
// engine built for it share one client; the client closes when both are gone.
type JackBackend struct {
	options *model.JackOptions

	mu      sync.Mutex
	current *jackSession
}

func NewJackBackend(options *model.JackOptions) *JackBackend {
	if options == nil {
		options = model.DefaultConfig().Jack
	}

	jack.SetErrorFunction(func(message string) {
		slog.Error("JACK: " + message)
	})
	jack.SetInfoFunction(func(message string) {
		slog.Debug("JACK: " + message)
	})

	return &JackBackend{
		options: options,
	}
}

func (backend *JackBackend) Name() string {
	return model.BackendJack
}

func (backend *JackBackend) Probe() error {
	client, status := jack.ClientOpen(backend.options.ClientName+"-probe", jack.NoStartServer)
	if status != 0 || client == nil {
		return newError("probe", backend.Name(), ErrPlatformUnsupported, statusError(status))
	}
	client.Close()

	return nil
}

type jackStatusError int

func (status jackStatusError) Error() string {
	return "JACK status: " + jack.StrError(int(status))
}

func statusError(status int) error {
	return jackStatusError(status)
}

// classifyJackStatus maps a jack_status_t bitmask to a capture error kind.
func classifyJackStatus(status int) error {
	switch {
	case status&jack.NameNotUnique != 0:
		return ErrDeviceBusy
	case status&jack.ServerFailed != 0:
		return ErrDeviceNotFound
	}
	return ErrUnknownCapture
}

type jackSession struct {
	backend    *JackBackend
	client     *jack.Client
	clientName string
	refs       int
	active     bool
}

func (session *jackSession) unref() {
	backend := session.backend

	backend.mu.Lock()
	session.refs--
	last := session.refs <= 0
	if last && backend.current == session {
		backend.current = nil
	}
	backend.mu.Unlock()

	if last {
		slog.Debug("Closing JACK client " + session.clientName)
		session.client.Close()
	}
}

func (backend *JackBackend) Acquire(ctx context.Context, constraints model.CaptureConstraints) (Capture, error) {
	client, status := jack.ClientOpen(backend.options.ClientName, jack.NoStartServer|jack.UseExactName)
	if status != 0 || client == nil {
		return nil, newError("acquire", backend.Name(), classifyJackStatus(status), statusError(status))
	}

	session := &jackSession{
		backend:    backend,
		client:     client,
		clientName: backend.options.ClientName,
		refs:       1,
	}

	input := newPort(In, "in_1", backend.options.CapturePort)
	if err := input.register(client); err != nil {
		client.Close()
		return nil, newError("acquire", backend.Name(), ErrDeviceNotFound, err)
	}

	if err := ctx.Err(); err != nil {
		client.Close()
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	capture := &jackCapture{
		session: session,
		input:   input,
	}
	capture.captureStream = newCaptureStream(backend.Name(), constraints, func() error {
		session.unref()
		return nil
	})

	backend.mu.Lock()
	backend.current = session
	backend.mu.Unlock()

	slog.Info("Opened JACK client " + session.clientName)

	return capture, nil
}

type jackCapture struct {
	*captureStream

	session *jackSession
	input   *Port
}

func (backend *JackBackend) NewEngine(ctx context.Context, options EngineOptions) (Engine, error) {
	backend.mu.Lock()
	session := backend.current
	if session != nil {
		session.refs++
	}
	backend.mu.Unlock()

	if session == nil {
		return nil, newError("engine", backend.Name(), ErrEngineUnavailable, errors.New("no capture client is open"))
	}

	channels := options.PlaybackChannels
	if channels <= 0 {
		channels = backend.options.PlaybackChannels
	}

	engine := &jackEngine{
		session:    session,
		sampleRate: int(session.client.GetSampleRate()),
		outputs:    make([]*Port, 0, channels),
	}
	engine.state.Store(int32(EngineSuspended))

	for i := 1; i <= channels; i++ {
		port := newPort(Out, fmt.Sprintf("out_%d", i), fmt.Sprintf("%s%d", backend.options.PlaybackPortPrefix, i))
		if err := port.register(session.client); err != nil {
			session.unref()
			return nil, newError("engine", backend.Name(), ErrEngineUnavailable, err)
		}
		engine.outputs = append(engine.outputs, port)
	}

	if code := session.client.SetProcessCallback(engine.process); code != 0 {
		session.unref()
		return nil, newError("engine", backend.Name(), ErrEngineUnavailable, errors.New("failed to set process callback: "+jack.StrError(code)))
	}

	session.client.SetXRunCallback(func() int {
		slog.Warn("JACK xrun")
		return 0
	})

	session.client.OnShutdown(func() {
		slog.Error("JACK server shut down")
		engine.state.Store(int32(EngineClosed))
	})

	return engine, nil
}

func (backend *JackBackend) Close() error {
	return nil
}

type jackEngine struct {
	session    *jackSession
	sampleRate int
	outputs    []*Port

	state    atomic.Int32
	attached atomic.Pointer[jackAttachment]

	in  []float32
	out []float32

	closeOnce sync.Once
}

type jackAttachment struct {
	capture *jackCapture
	process ProcessFunc
}

func (engine *jackEngine) SampleRate() int {
	return engine.sampleRate
}

func (engine *jackEngine) State() EngineState {
	return EngineState(engine.state.Load())
}

func (engine *jackEngine) Attach(src Capture, process ProcessFunc) error {
	capture, ok := src.(*jackCapture)
	if !ok || capture.session != engine.session {
		return newError("attach", model.BackendJack, ErrEngineUnavailable, errors.New("capture does not belong to this JACK client"))
	}

	engine.attached.Store(&jackAttachment{capture: capture, process: process})
	return nil
}

func (engine *jackEngine) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError("resume", model.BackendJack, ErrEngineUnavailable, err)
	}

	switch engine.State() {
	case EngineRunning:
		return nil
	case EngineClosed:
		return newError("resume", model.BackendJack, ErrEngineUnavailable, errors.New("engine closed"))
	}

	client := engine.session.client
	if code := client.Activate(); code != 0 {
		return newError("resume", model.BackendJack, ErrEngineUnavailable, errors.New("failed to activate client: "+jack.StrError(code)))
	}
	engine.session.active = true

	slog.Info("Connecting audio ports")

	if attached := engine.attached.Load(); attached != nil {
		if err := attached.capture.input.connect(client, engine.session.clientName); err != nil {
			return newError("resume", model.BackendJack, ErrEngineUnavailable, err)
		}
	}

	for _, port := range engine.outputs {
		if err := port.connect(client, engine.session.clientName); err != nil {
			// hardware may offer fewer playback ports than requested
			slog.Warn(err.Error())
		}
	}

	engine.state.Store(int32(EngineRunning))
	return nil
}

func (engine *jackEngine) Close() error {
	engine.closeOnce.Do(func() {
		engine.state.Store(int32(EngineClosed))

		if engine.session.active {
			engine.session.client.Deactivate()
		}
		engine.session.unref()
	})

	return nil
}

func (engine *jackEngine) process(nframes uint32) int {
	frames := int(nframes)
	if cap(engine.in) < frames {
		engine.in = make([]float32, frames)
		engine.out = make([]float32, frames)
	}
	in := engine.in[:frames]
	out := engine.out[:frames]

	attached := engine.attached.Load()
	if attached == nil || attached.capture.Released() || engine.State() != EngineRunning {
		clear(out)
	} else {
		samples := attached.capture.input.buffer(nframes)
		for i := range min(frames, len(samples)) {
			in[i] = float32(samples[i])
		}
		attached.capture.push(in)

		runPeriod(attached.capture, attached.process, in, out)
	}

	for _, port := range engine.outputs {
		buffer := port.buffer(nframes)
		for i := range min(frames, len(buffer)) {
			buffer[i] = jack.AudioSample(out[i])
		}
	}

	return 0
}
