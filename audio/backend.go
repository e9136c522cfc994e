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

	"fox-ambient/model"
)

// ProcessFunc is run by an engine once per period. in holds the conditioned
// capture samples (zero filled when the capture ran dry), out receives the
// mono result that the engine copies to every playback channel.
type ProcessFunc func(in []float32, out []float32)

type EngineState int8

const (
	EngineSuspended EngineState = iota
	EngineRunning
	EngineClosed
)

func (s EngineState) String() string {
	switch s {
	case EngineSuspended:
		return "suspended"
	case EngineRunning:
		return "running"
	case EngineClosed:
		return "closed"
	}
	return "unknown"
}

type EngineOptions struct {
	SampleRate       int
	Latency          model.LatencyMode
	PlaybackChannels int
}

// Backend is a host audio system able to hand out capture devices and
// playback engines.
type Backend interface {
	Name() string

	// Probe reports an ErrPlatformUnsupported error when this host cannot
	// capture or play audio through the backend.
	Probe() error

	Acquire(ctx context.Context, constraints model.CaptureConstraints) (Capture, error)
	NewEngine(ctx context.Context, options EngineOptions) (Engine, error)

	Close() error
}

// Capture is an exclusive hold on an input device. Samples read from it have
// already been through the conditioning requested by its constraints.
type Capture interface {
	Constraints() model.CaptureConstraints

	// Read fills dst with the oldest buffered samples and returns how many
	// were available. It never blocks.
	Read(dst []float32) int

	// Release frees the device. Calling it more than once is a no-op.
	Release() error
	Released() bool
}

type Engine interface {
	SampleRate() int
	State() EngineState

	// Attach connects src as the engine input and process as its per-period
	// work. It must be called before Resume.
	Attach(src Capture, process ProcessFunc) error

	Resume(ctx context.Context) error
	Close() error
}

// farEndSink is implemented by captures that run echo cancellation and need
// to see what the engine played.
type farEndSink interface {
	FeedFarEnd(frame []float32)
}

// runPeriod is the per-period body shared by the engines: pull the capture,
// process it, then hand the output back to the capture as echo reference.
func runPeriod(src Capture, process ProcessFunc, in []float32, out []float32) {
	n := src.Read(in)
	for i := n; i < len(in); i++ {
		in[i] = 0
	}

	process(in, out)

	if sink, ok := src.(farEndSink); ok {
		sink.FeedFarEnd(out)
	}
}
