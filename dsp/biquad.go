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
	"sync/atomic"
)

type biquadCoeffs struct {
	b0, b1, b2, a1, a2 float64
}

// Biquad is a second order high-pass filter. Q is interpreted in dB the way
// browser audio engines treat it for high/low-pass filters. The cutoff can be
// moved while audio flows; filter state is kept across the change.
type Biquad struct {
	sampleRate int
	q          float64

	frequency atomic.Uint64
	coeffs    atomic.Pointer[biquadCoeffs]

	x1, x2, y1, y2 float64
}

func NewHighPass(sampleRate int, frequency float64, q float64) *Biquad {
	b := &Biquad{
		sampleRate: sampleRate,
		q:          q,
	}
	b.SetFrequency(frequency)
	return b
}

func (b *Biquad) SetFrequency(frequency float64) {
	nyquist := float64(b.sampleRate) / 2
	if frequency <= 0 {
		frequency = 1
	} else if frequency >= nyquist {
		frequency = nyquist - 1
	}

	b.frequency.Store(math.Float64bits(frequency))
	b.coeffs.Store(highPassCoeffs(b.sampleRate, frequency, b.q))
}

func (b *Biquad) Frequency() float64 {
	return math.Float64frombits(b.frequency.Load())
}

func (b *Biquad) Q() float64 {
	return b.q
}

func highPassCoeffs(sampleRate int, frequency float64, qDb float64) *biquadCoeffs {
	w0 := 2 * math.Pi * frequency / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * math.Pow(10, qDb/20))

	a0 := 1 + alpha

	return &biquadCoeffs{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (b *Biquad) Process(frame []float32) {
	c := b.coeffs.Load()

	for i, s := range frame {
		x := float64(s)
		y := c.b0*x + c.b1*b.x1 + c.b2*b.x2 - c.a1*b.y1 - c.a2*b.y2

		b.x2, b.x1 = b.x1, x
		b.y2, b.y1 = b.y1, y

		frame[i] = float32(y)
	}
}

// Reset clears the filter history.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}
