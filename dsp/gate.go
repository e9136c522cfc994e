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

const (
	GateDefaultThreshold = float32(0.01)
	GateDefaultHoldMs    = 200
)

// NoiseGate zeroes frames whose RMS stays under the threshold for longer than
// the hold time.
type NoiseGate struct {
	threshold  float32
	holdFrames int // hold length in samples
	remaining  int
	open       bool
}

func NewNoiseGate(sampleRate int) *NoiseGate {
	return &NoiseGate{
		threshold:  GateDefaultThreshold,
		holdFrames: sampleRate * GateDefaultHoldMs / 1000,
	}
}

func (g *NoiseGate) SetThreshold(threshold float32) {
	g.threshold = threshold
}

func (g *NoiseGate) Threshold() float32 {
	return g.threshold
}

func (g *NoiseGate) IsOpen() bool {
	return g.open
}

func (g *NoiseGate) Process(frame []float32) float32 {
	rms := RMS(frame)

	if rms >= g.threshold {
		g.remaining = g.holdFrames
		g.open = true
		return rms
	}

	if g.remaining > 0 {
		g.remaining -= len(frame)
		g.open = true
		return rms
	}

	for i := range frame {
		frame[i] = 0
	}
	g.open = false

	return rms
}

func (g *NoiseGate) Reset() {
	g.remaining = 0
	g.open = false
}
