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
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"fox-ambient/model"
	"fox-ambient/util"
)

// MalgoBackend drives the default capture and playback devices through
// miniaudio.
type MalgoBackend struct {
	playbackChannels int

	mu      sync.Mutex
	context *malgo.AllocatedContext
}

func NewMalgoBackend(options *model.MalgoOptions) *MalgoBackend {
	channels := 2
	if options != nil && options.PlaybackChannels > 0 {
		channels = options.PlaybackChannels
	}

	return &MalgoBackend{
		playbackChannels: channels,
	}
}

func (backend *MalgoBackend) Name() string {
	return model.BackendMalgo
}

func (backend *MalgoBackend) audioContext() (*malgo.AllocatedContext, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	if backend.context != nil {
		return backend.context, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		util.TraceLog("miniaudio: " + message)
	})
	if err != nil {
		return nil, err
	}

	backend.context = ctx
	return ctx, nil
}

func (backend *MalgoBackend) Probe() error {
	ctx, err := backend.audioContext()
	if err != nil {
		return newError("probe", backend.Name(), ErrPlatformUnsupported, err)
	}

	playback, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return newError("probe", backend.Name(), ErrPlatformUnsupported, err)
	}
	if len(playback) == 0 {
		return newError("probe", backend.Name(), ErrPlatformUnsupported, errors.New("no playback device"))
	}

	return nil
}

// classifyMalgo maps a miniaudio result to a capture error kind.
func classifyMalgo(err error) error {
	switch {
	case errors.Is(err, malgo.ErrAccessDenied):
		return ErrPermissionDenied
	case errors.Is(err, malgo.ErrNoDevice), errors.Is(err, malgo.ErrDoesNotExist):
		return ErrDeviceNotFound
	case errors.Is(err, malgo.ErrBusy), errors.Is(err, malgo.ErrAlreadyInUse), errors.Is(err, malgo.ErrShareModeNotSupported):
		return ErrDeviceBusy
	}
	return ErrUnknownCapture
}

func (backend *MalgoBackend) Acquire(ctx context.Context, constraints model.CaptureConstraints) (Capture, error) {
	audioCtx, err := backend.audioContext()
	if err != nil {
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	var device *malgo.Device
	stream := newCaptureStream(backend.Name(), constraints, func() error {
		if device == nil {
			return nil
		}
		err := device.Stop()
		device.Uninit()
		return err
	})

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(constraints.ChannelCount)
	deviceConfig.SampleRate = uint32(constraints.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(constraints.TargetLatencyFrames())
	deviceConfig.PerformanceProfile = malgo.LowLatency

	channels := max(constraints.ChannelCount, 1)
	frame := make([]float32, 0, constraints.TargetLatencyFrames()*2)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			frame = decodeFloat32(frame[:0], input, channels, int(frameCount))
			stream.push(frame)
		},
	}

	device, err = malgo.InitDevice(audioCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, newError("acquire", backend.Name(), classifyMalgo(err), err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, newError("acquire", backend.Name(), classifyMalgo(err), err)
	}

	if err := ctx.Err(); err != nil {
		stream.Release()
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	slog.Info("Opened capture device", "backend", backend.Name(), "sample_rate", device.SampleRate())

	return stream, nil
}

func (backend *MalgoBackend) NewEngine(ctx context.Context, options EngineOptions) (Engine, error) {
	audioCtx, err := backend.audioContext()
	if err != nil {
		return nil, newError("engine", backend.Name(), ErrEngineUnavailable, err)
	}

	channels := options.PlaybackChannels
	if channels <= 0 {
		channels = backend.playbackChannels
	}

	engine := &malgoEngine{
		channels: channels,
	}
	engine.state.Store(int32(EngineSuspended))

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(options.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(options.Latency.PeriodMillis())
	deviceConfig.PerformanceProfile = malgo.LowLatency
	if options.Latency == model.LatencyPlayback {
		deviceConfig.PerformanceProfile = malgo.Conservative
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			engine.period(output, int(frameCount))
		},
		Stop: func() {
			slog.Debug("Playback device stopped")
		},
	}

	engine.device, err = malgo.InitDevice(audioCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, newError("engine", backend.Name(), ErrEngineUnavailable, err)
	}

	engine.sampleRate = int(engine.device.SampleRate())

	return engine, nil
}

func (backend *MalgoBackend) Close() error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	if backend.context == nil {
		return nil
	}

	err := backend.context.Uninit()
	backend.context.Free()
	backend.context = nil

	return err
}

type attachment struct {
	src     Capture
	process ProcessFunc
}

type malgoEngine struct {
	device     *malgo.Device
	sampleRate int
	channels   int

	state    atomic.Int32
	attached atomic.Pointer[attachment]

	// only touched from the device callback
	in  []float32
	out []float32

	closeOnce sync.Once
}

func (engine *malgoEngine) SampleRate() int {
	return engine.sampleRate
}

func (engine *malgoEngine) State() EngineState {
	return EngineState(engine.state.Load())
}

func (engine *malgoEngine) Attach(src Capture, process ProcessFunc) error {
	if engine.State() == EngineClosed {
		return newError("attach", model.BackendMalgo, ErrEngineUnavailable, errors.New("engine closed"))
	}

	engine.attached.Store(&attachment{src: src, process: process})
	return nil
}

func (engine *malgoEngine) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError("resume", model.BackendMalgo, ErrEngineUnavailable, err)
	}

	switch engine.State() {
	case EngineRunning:
		return nil
	case EngineClosed:
		return newError("resume", model.BackendMalgo, ErrEngineUnavailable, errors.New("engine closed"))
	}

	if err := engine.device.Start(); err != nil {
		return newError("resume", model.BackendMalgo, ErrEngineUnavailable, err)
	}

	engine.state.Store(int32(EngineRunning))
	return nil
}

func (engine *malgoEngine) Close() error {
	var err error

	engine.closeOnce.Do(func() {
		engine.state.Store(int32(EngineClosed))

		if engine.device.IsStarted() {
			err = engine.device.Stop()
		}
		engine.device.Uninit()
	})

	return err
}

func (engine *malgoEngine) period(output []byte, frames int) {
	if cap(engine.in) < frames {
		engine.in = make([]float32, frames)
		engine.out = make([]float32, frames)
	}
	in := engine.in[:frames]
	out := engine.out[:frames]

	if attached := engine.attached.Load(); attached != nil && !attached.src.Released() {
		runPeriod(attached.src, attached.process, in, out)
	} else {
		clear(out)
	}

	encodeFloat32(output, out, engine.channels)
}

// decodeFloat32 reads interleaved native float32 samples and keeps the first
// channel of each frame.
func decodeFloat32(dst []float32, data []byte, channels int, frames int) []float32 {
	stride := channels * bytesPerSample
	frames = min(frames, len(data)/stride)

	for i := range frames {
		bits := binary.NativeEndian.Uint32(data[i*stride:])
		dst = append(dst, math.Float32frombits(bits))
	}

	return dst
}

// encodeFloat32 writes mono samples to every channel of an interleaved
// native float32 buffer.
func encodeFloat32(data []byte, mono []float32, channels int) {
	stride := channels * bytesPerSample

	for i, sample := range mono {
		if (i+1)*stride > len(data) {
			break
		}

		bits := math.Float32bits(sample)
		for ch := range channels {
			binary.NativeEndian.PutUint32(data[i*stride+ch*bytesPerSample:], bits)
		}
	}
}
