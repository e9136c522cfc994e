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
package dsp

import "sync"

const (
	EchoDefaultDelayMs = 40
	EchoDefaultTaps    = 256
	EchoDefaultStep    = 0.1

	echoMaxFrame = 4096
)

// EchoCanceller is an NLMS adaptive filter that removes the part of the
// captured signal that correlates with what was recently played back. The
// playback side calls FeedFarEnd, the capture side calls Process; the two may
// run on different goroutines.
type EchoCanceller struct {
	mu sync.Mutex

	weights []float64
	taps    int
	step    float64

	far     []float32
	farHead int
	delay   int

	ref []float32
}

func NewEchoCanceller(sampleRate int) *EchoCanceller {
	delay := sampleRate * EchoDefaultDelayMs / 1000
	size := echoMaxFrame + delay + EchoDefaultTaps

	return &EchoCanceller{
		weights: make([]float64, EchoDefaultTaps),
		taps:    EchoDefaultTaps,
		step:    EchoDefaultStep,
		far:     make([]float32, size),
		delay:   delay,
		ref:     make([]float32, echoMaxFrame+EchoDefaultTaps),
	}
}

func (e *EchoCanceller) FeedFarEnd(frame []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := len(e.far)
	for _, s := range frame {
		e.far[e.farHead] = s
		e.farHead = (e.farHead + 1) % size
	}
}

func (e *EchoCanceller) Process(frame []float32) {
	for len(frame) > echoMaxFrame {
		e.process(frame[:echoMaxFrame])
		frame = frame[echoMaxFrame:]
	}
	e.process(frame)
}

func (e *EchoCanceller) process(frame []float32) {
	n := len(frame)
	if n == 0 {
		return
	}

	refLen := n + e.taps - 1
	ref := e.ref[:refLen]

	e.mu.Lock()
	size := len(e.far)
	start := e.farHead - n - e.delay - e.taps + 1
	for j := range refLen {
		ref[j] = e.far[((start+j)%size+size)%size]
	}
	e.mu.Unlock()

	for i := range frame {
		base := i + e.taps - 1

		var estimate, power float64
		for k := 0; k < e.taps; k++ {
			x := float64(ref[base-k])
			estimate += e.weights[k] * x
			power += x * x
		}

		residual := float64(frame[i]) - estimate

		if power > 1e-10 {
			step := e.step * residual / power
			for k := 0; k < e.taps; k++ {
				e.weights[k] += step * float64(ref[base-k])
			}
		}

		frame[i] = clamp(float32(residual))
	}
}

func (e *EchoCanceller) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.weights {
		e.weights[i] = 0
	}
	for i := range e.far {
		e.far[i] = 0
	}
	e.farHead = 0
}
