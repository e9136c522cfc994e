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

type CompressorParams struct {
	Threshold float64 // dB
	Knee      float64 // dB
	Ratio     float64
	Attack    float64 // seconds
	Release   float64 // seconds
}

// DefaultCompressorParams are the fixed dynamics settings of the processing
// graph. They are not user adjustable.
func DefaultCompressorParams() CompressorParams {
	return CompressorParams{
		Threshold: -24,
		Knee:      30,
		Ratio:     12,
		Attack:    0.003,
		Release:   0.25,
	}
}

// Compressor is a feed-forward soft-knee dynamics compressor. The gain
// computer works on the instantaneous sample level and the resulting gain
// reduction is smoothed with separate attack and release time constants.
// No makeup gain is applied.
type Compressor struct {
	params       CompressorParams
	attackCoeff  float64
	releaseCoeff float64

	// current smoothed gain reduction, dB, <= 0
	envelope float64

	reduction atomic.Uint64
}

func NewCompressor(sampleRate int, params CompressorParams) *Compressor {
	return &Compressor{
		params:       params,
		attackCoeff:  timeConstant(params.Attack, sampleRate),
		releaseCoeff: timeConstant(params.Release, sampleRate),
	}
}

func timeConstant(seconds float64, sampleRate int) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (seconds * float64(sampleRate)))
}

func (c *Compressor) Params() CompressorParams {
	return c.params
}

// Reduction returns the gain reduction applied to the last processed frame in
// dB (0 or negative).
func (c *Compressor) Reduction() float64 {
	return math.Float64frombits(c.reduction.Load())
}

// staticCurve maps an input level to an output level, both in dB.
func (c *Compressor) staticCurve(level float64) float64 {
	t := c.params.Threshold
	w := c.params.Knee
	r := c.params.Ratio
	over := level - t

	switch {
	case 2*over < -w:
		return level
	case w > 0 && 2*math.Abs(over) <= w:
		x := over + w/2
		return level + (1/r-1)*x*x/(2*w)
	default:
		return t + over/r
	}
}

func (c *Compressor) Process(frame []float32) {
	for i, s := range frame {
		amplitude := math.Abs(float64(s))

		target := 0.0
		if amplitude > 1e-6 {
			level := linearToDb(amplitude)
			target = c.staticCurve(level) - level
		}

		coeff := c.releaseCoeff
		if target < c.envelope {
			coeff = c.attackCoeff
		}
		c.envelope = target + coeff*(c.envelope-target)

		if c.envelope != 0 {
			frame[i] = float32(float64(s) * dbToLinear(c.envelope))
		}
	}

	c.reduction.Store(math.Float64bits(c.envelope))
}
