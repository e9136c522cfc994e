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
package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"fox-ambient/audio"
	"fox-ambient/dsp"
	"fox-ambient/model"
)

const (
	SampleRate = model.CaptureSampleRate

	FilterQ             = 1.0
	NoiseSuppressCutoff = 200.0
	DefaultCutoff       = 80.0

	AnalyserSize      = 512
	AnalyserSmoothing = 0.3
)

// Graph is one live processing chain:
// source -> input gain -> compressor -> high-pass -> analyser -> output gain -> sink.
type Graph struct {
	InputGain  *dsp.Gain
	Compressor *dsp.Compressor
	Filter     *dsp.Biquad
	Analyser   *dsp.Analyser
	OutputGain *dsp.Gain
	Engine     audio.Engine

	closeOnce sync.Once
	closeErr  error
}

// CutoffFor returns the high-pass cutoff used for the noise suppression setting.
func CutoffFor(noiseSuppress bool) float64 {
	if noiseSuppress {
		return NoiseSuppressCutoff
	}
	return DefaultCutoff
}

// Build creates an engine on backend, wires capture through the processing
// stages and leaves the engine running. Failures carry the
// audio.ErrEngineUnavailable kind and never leave an engine behind.
func Build(ctx context.Context, backend audio.Backend, capture audio.Capture, prefs model.Preferences) (*Graph, error) {
	engine, err := backend.NewEngine(ctx, audio.EngineOptions{
		SampleRate: SampleRate,
		Latency:    prefs.Latency,
	})
	if err != nil {
		return nil, engineError("create", backend.Name(), err)
	}

	sampleRate := engine.SampleRate()
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}

	graph := &Graph{
		InputGain:  dsp.NewGain(float64(model.ClampPercent(prefs.MicGain)) / 100),
		Compressor: dsp.NewCompressor(sampleRate, dsp.DefaultCompressorParams()),
		Filter:     dsp.NewHighPass(sampleRate, CutoffFor(prefs.NoiseSuppress), FilterQ),
		Analyser:   dsp.NewAnalyser(AnalyserSize, AnalyserSmoothing),
		OutputGain: dsp.NewGain(float64(model.ClampPercent(prefs.OutputVolume)) / 100),
		Engine:     engine,
	}

	if err := engine.Attach(capture, graph.process); err != nil {
		engine.Close()
		return nil, engineError("attach", backend.Name(), err)
	}

	if engine.State() == audio.EngineSuspended {
		if err := engine.Resume(ctx); err != nil {
			engine.Close()
			return nil, engineError("resume", backend.Name(), err)
		}
	}

	slog.Debug("Processing graph running", "backend", backend.Name(), "sample_rate", sampleRate, "latency", prefs.Latency.String())

	return graph, nil
}

func engineError(op string, backend string, err error) error {
	var audioErr *audio.Error
	if errors.As(err, &audioErr) && audioErr.Kind == audio.ErrEngineUnavailable {
		return audioErr
	}
	return &audio.Error{Op: op, Backend: backend, Kind: audio.ErrEngineUnavailable, Err: err}
}

func (graph *Graph) process(in []float32, out []float32) {
	copy(out, in)

	graph.InputGain.Process(out)
	graph.Compressor.Process(out)
	graph.Filter.Process(out)
	graph.Analyser.Process(out)
	graph.OutputGain.Process(out)
}

// Close stops and closes the engine. Later calls return the first result.
func (graph *Graph) Close() error {
	graph.closeOnce.Do(func() {
		graph.closeErr = graph.Engine.Close()
	})
	return graph.closeErr
}
