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
	"math"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/wav"
	"github.com/go-audio/transforms"

	"fox-ambient/model"
	"fox-ambient/util"
)

// SimulatedBackend stands in for real hardware. The capture side plays a WAV
// file in a loop or a tone with a little noise; the engine paces periods with
// a ticker and throws its output away.
type SimulatedBackend struct {
	options *model.SimulationOptions

	mu   sync.Mutex
	held bool
}

func NewSimulatedBackend(options *model.SimulationOptions) *SimulatedBackend {
	if options == nil {
		options = model.DefaultConfig().Simulation
	}

	return &SimulatedBackend{
		options: options,
	}
}

func (backend *SimulatedBackend) Name() string {
	return model.BackendSimulate
}

func (backend *SimulatedBackend) Probe() error {
	return nil
}

func (backend *SimulatedBackend) Close() error {
	return nil
}

func (backend *SimulatedBackend) Acquire(ctx context.Context, constraints model.CaptureConstraints) (Capture, error) {
	source, err := backend.openSource(constraints.SampleRate)
	if err != nil {
		return nil, err
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()

	if backend.held {
		return nil, newError("acquire", backend.Name(), ErrDeviceBusy, errors.New("simulated device already held"))
	}

	if err := ctx.Err(); err != nil {
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	backend.held = true

	capture := &simulatedCapture{source: source}
	capture.captureStream = newCaptureStream(backend.Name(), constraints, func() error {
		backend.mu.Lock()
		backend.held = false
		backend.mu.Unlock()
		return nil
	})

	return capture, nil
}

func (backend *SimulatedBackend) openSource(sampleRate int) (signalSource, error) {
	if backend.options.WavFile == "" {
		return newToneSource(sampleRate, backend.options.ToneHz, backend.options.ToneLevel), nil
	}

	path, err := util.ResolveHomeDirPath(backend.options.WavFile)
	if err != nil {
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	if !util.FileExists(path) {
		return nil, newError("acquire", backend.Name(), ErrDeviceNotFound, fmt.Errorf("wav file %s does not exist", path))
	}

	source, err := loadWavSource(path, sampleRate)
	if err != nil {
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	return source, nil
}

type signalSource interface {
	fill(dst []float32)
}

type toneSource struct {
	step  float64
	phase float64
	level float64
}

func newToneSource(sampleRate int, hz float64, level float64) *toneSource {
	return &toneSource{
		step:  2 * math.Pi * hz / float64(sampleRate),
		level: level,
	}
}

func (tone *toneSource) fill(dst []float32) {
	for i := range dst {
		noise := (rand.Float64()*2 - 1) * tone.level * 0.05
		dst[i] = float32(tone.level*math.Sin(tone.phase) + noise)

		tone.phase += tone.step
		if tone.phase > 2*math.Pi {
			tone.phase -= 2 * math.Pi
		}
	}
}

type wavSource struct {
	samples []float32
	pos     int
}

// loadWavSource decodes a whole WAV file, folds it to mono and resamples it
// to sampleRate.
func loadWavSource(path string, sampleRate int) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("input is not a valid WAV audio file")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	buf := pcm.AsFloatBuffer()
	if err := transforms.MonoDownmix(buf); err != nil {
		return nil, err
	}

	scale := math.Pow(2, float64(decoder.BitDepth)-1)
	mono := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		mono[i] = float32(s / scale)
	}

	mono = resampleLinear(mono, int(decoder.SampleRate), sampleRate)
	if len(mono) == 0 {
		return nil, errors.New("wav file holds no samples")
	}

	slog.Info(fmt.Sprintf("Loaded %s: %d samples, %d Hz source", path, len(mono), decoder.SampleRate))

	return &wavSource{samples: mono}, nil
}

func resampleLinear(in []float32, from int, to int) []float32 {
	if from == to || from <= 0 || len(in) < 2 {
		return in
	}

	ratio := float64(from) / float64(to)
	out := make([]float32, int(float64(len(in))/ratio))

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}

	return out
}

func (source *wavSource) fill(dst []float32) {
	for i := range dst {
		dst[i] = source.samples[source.pos]
		source.pos = (source.pos + 1) % len(source.samples)
	}
}

type simulatedCapture struct {
	*captureStream

	source signalSource
}

// generate pulls the next frame from the source through the conditioner.
func (capture *simulatedCapture) generate(frame []float32) {
	capture.source.fill(frame)
	capture.push(frame)
}

func (backend *SimulatedBackend) NewEngine(ctx context.Context, options EngineOptions) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("engine", backend.Name(), ErrEngineUnavailable, err)
	}

	sampleRate := options.SampleRate
	if sampleRate <= 0 {
		sampleRate = model.CaptureSampleRate
	}

	engine := &SimulatedEngine{
		sampleRate: sampleRate,
		period:     time.Duration(options.Latency.PeriodMillis()) * time.Millisecond,
		frames:     sampleRate * options.Latency.PeriodMillis() / 1000,
	}
	engine.state.Store(int32(EngineSuspended))

	return engine, nil
}

type simulatedAttachment struct {
	capture *simulatedCapture
	process ProcessFunc
}

type SimulatedEngine struct {
	sampleRate int
	period     time.Duration
	frames     int

	state    atomic.Int32
	attached atomic.Pointer[simulatedAttachment]

	periods atomic.Uint64
	peak    atomic.Uint32

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (engine *SimulatedEngine) SampleRate() int {
	return engine.sampleRate
}

func (engine *SimulatedEngine) State() EngineState {
	return EngineState(engine.state.Load())
}

func (engine *SimulatedEngine) Attach(src Capture, process ProcessFunc) error {
	capture, ok := src.(*simulatedCapture)
	if !ok {
		return newError("attach", model.BackendSimulate, ErrEngineUnavailable, errors.New("capture is not simulated"))
	}

	engine.attached.Store(&simulatedAttachment{capture: capture, process: process})
	return nil
}

func (engine *SimulatedEngine) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError("resume", model.BackendSimulate, ErrEngineUnavailable, err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	switch engine.State() {
	case EngineRunning:
		return nil
	case EngineClosed:
		return newError("resume", model.BackendSimulate, ErrEngineUnavailable, errors.New("engine closed"))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	engine.cancel = cancel
	engine.state.Store(int32(EngineRunning))

	engine.wg.Add(1)
	go engine.run(runCtx)

	return nil
}

func (engine *SimulatedEngine) run(ctx context.Context) {
	defer engine.wg.Done()

	in := make([]float32, engine.frames)
	out := make([]float32, engine.frames)

	t := time.NewTicker(engine.period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		attached := engine.attached.Load()
		if attached == nil || attached.capture.Released() {
			continue
		}

		attached.capture.generate(in)
		runPeriod(attached.capture, attached.process, in, out)

		var peak float32
		for _, s := range out {
			peak = max(peak, float32(math.Abs(float64(s))))
		}
		engine.peak.Store(math.Float32bits(peak))
		engine.periods.Add(1)
	}
}

// Periods returns how many processing periods have run.
func (engine *SimulatedEngine) Periods() uint64 {
	return engine.periods.Load()
}

// Peak returns the absolute peak of the last output period.
func (engine *SimulatedEngine) Peak() float32 {
	return math.Float32frombits(engine.peak.Load())
}

func (engine *SimulatedEngine) Close() error {
	engine.mu.Lock()
	engine.state.Store(int32(EngineClosed))
	cancel := engine.cancel
	engine.cancel = nil
	engine.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	engine.wg.Wait()

	return nil
}
