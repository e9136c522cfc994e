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

import (
	"math"
	"sync"
)

// Analyser records the most recent window of samples flowing through it so
// the level meter can inspect them. Audio passes through unchanged.
type Analyser struct {
	mu        sync.Mutex
	window    []float32
	pos       int
	smoothing float64
}

func NewAnalyser(fftSize int, smoothing float64) *Analyser {
	if fftSize <= 0 {
		fftSize = 512
	}

	return &Analyser{
		window:    make([]float32, fftSize),
		smoothing: smoothing,
	}
}

func (a *Analyser) FFTSize() int {
	return len(a.window)
}

// SmoothingTimeConstant is kept for parity with frequency-domain analysers;
// time-domain reads do not use it.
func (a *Analyser) SmoothingTimeConstant() float64 {
	return a.smoothing
}

func (a *Analyser) Process(frame []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := len(a.window)
	for _, s := range frame {
		a.window[a.pos] = s
		a.pos = (a.pos + 1) % size
	}
}

// GetFloatTimeDomainData copies the most recent samples, oldest first, into
// dst. At most FFTSize samples are written.
func (a *Analyser) GetFloatTimeDomainData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := len(a.window)
	n := min(len(dst), size)
	start := a.pos - n
	for i := range n {
		dst[i] = a.window[((start+i)%size+size)%size]
	}

	return n
}

// GetByteTimeDomainData is GetFloatTimeDomainData converted to unsigned
// 8-bit samples centered at 128.
func (a *Analyser) GetByteTimeDomainData(dst []byte) int {
	samples := make([]float32, min(len(dst), a.FFTSize()))
	n := a.GetFloatTimeDomainData(samples)

	for i := range n {
		v := math.Floor(128 * (float64(samples[i]) + 1))
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		dst[i] = byte(v)
	}

	return n
}
