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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, amplitude float32, sampleRate int, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func constant(value float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestRMS(t *testing.T) {
	assert.Equal(t, float32(0), RMS(nil))
	assert.InDelta(t, 0.5, RMS(constant(0.5, 64)), 1e-6)
	assert.InDelta(t, 0.5/math.Sqrt2, RMS(sine(441, 0.5, 44100, 44100)), 1e-3)
}

func TestGain(t *testing.T) {
	g := NewGain(0.5)
	frame := constant(0.8, 8)
	g.Process(frame)
	assert.InDelta(t, 0.4, frame[0], 1e-6)

	g.SetGain(-3)
	assert.Equal(t, 0.0, g.Gain())
	g.Process(frame)
	assert.Equal(t, float32(0), frame[7])

	g.SetGain(1)
	frame = constant(0.3, 4)
	g.Process(frame)
	assert.Equal(t, float32(0.3), frame[0])
}

func TestCompressorLeavesQuietSignalAlone(t *testing.T) {
	c := NewCompressor(44100, DefaultCompressorParams())
	frame := constant(0.005, 1024)
	c.Process(frame)

	for _, s := range frame {
		require.Equal(t, float32(0.005), s)
	}
	assert.Equal(t, 0.0, c.Reduction())
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	c := NewCompressor(44100, DefaultCompressorParams())
	frame := constant(1.0, 44100)
	c.Process(frame)

	// 0 dBFS is 24 dB over the threshold, 12:1 leaves 2 dB of it
	assert.InDelta(t, math.Pow(10, -22.0/20), frame[len(frame)-1], 1e-3)
	assert.InDelta(t, -22.0, c.Reduction(), 0.05)
}

func TestCompressorKneeIsContinuous(t *testing.T) {
	c := NewCompressor(44100, DefaultCompressorParams())
	lower := -24.0 - 15
	upper := -24.0 + 15

	assert.InDelta(t, lower, c.staticCurve(lower), 1e-9)
	assert.InDelta(t, -24.0+15.0/12, c.staticCurve(upper), 1e-9)
	assert.Less(t, c.staticCurve(-24), -24.0)
}

func TestHighPassRejectsDC(t *testing.T) {
	f := NewHighPass(44100, 200, 1)
	frame := constant(0.5, 44100)
	f.Process(frame)

	assert.InDelta(t, 0, frame[len(frame)-1], 1e-4)
}

func TestHighPassPassesVoiceBand(t *testing.T) {
	f := NewHighPass(44100, 200, 1)
	frame := sine(1000, 0.5, 44100, 44100)
	f.Process(frame)

	// skip the settling period
	tail := frame[4410:]
	assert.InDelta(t, 0.5/math.Sqrt2, RMS(tail), 0.5/math.Sqrt2*0.08)
}

func TestHighPassRetune(t *testing.T) {
	f := NewHighPass(44100, 80, 1)
	assert.Equal(t, 80.0, f.Frequency())
	assert.Equal(t, 1.0, f.Q())

	f.SetFrequency(200)
	assert.Equal(t, 200.0, f.Frequency())

	f.SetFrequency(1e6)
	assert.Less(t, f.Frequency(), 22050.0)

	f.SetFrequency(-1)
	assert.Greater(t, f.Frequency(), 0.0)
}

func TestHighPassAttenuatesRumble(t *testing.T) {
	low := NewHighPass(44100, 200, 1)
	frame := sine(40, 0.5, 44100, 44100)
	low.Process(frame)

	assert.Less(t, RMS(frame[22050:]), float32(0.1))
}

func TestAnalyserWindow(t *testing.T) {
	a := NewAnalyser(4, 0.3)
	assert.Equal(t, 4, a.FFTSize())
	assert.Equal(t, 0.3, a.SmoothingTimeConstant())

	a.Process([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})

	dst := make([]float32, 4)
	require.Equal(t, 4, a.GetFloatTimeDomainData(dst))
	assert.Equal(t, []float32{0.3, 0.4, 0.5, 0.6}, dst)
}

func TestAnalyserBytes(t *testing.T) {
	a := NewAnalyser(4, 0)
	a.Process([]float32{0, 1, -1, 2})

	dst := make([]byte, 4)
	require.Equal(t, 4, a.GetByteTimeDomainData(dst))
	assert.Equal(t, []byte{128, 255, 0, 255}, dst)
}

func TestAnalyserDefaultsSize(t *testing.T) {
	assert.Equal(t, 512, NewAnalyser(0, 0).FFTSize())
}

func TestAutoGainConvergesUp(t *testing.T) {
	agc := NewAutoGain()
	for range 400 {
		agc.Process(constant(0.02, 441))
	}

	assert.Greater(t, agc.Gain(), 5.0)
	assert.LessOrEqual(t, agc.Gain(), AgcMaxGain)
}

func TestAutoGainAttacksFast(t *testing.T) {
	agc := NewAutoGain()
	for range 10 {
		agc.Process(constant(0.9, 441))
	}

	assert.Less(t, agc.Gain(), 0.3)
}

func TestAutoGainIgnoresSilence(t *testing.T) {
	agc := NewAutoGain()
	agc.Process(constant(0, 441))
	assert.Equal(t, 1.0, agc.Gain())
}

func TestNoiseGate(t *testing.T) {
	g := NewNoiseGate(1000)

	loud := constant(0.5, 100)
	g.Process(loud)
	assert.True(t, g.IsOpen())
	assert.Equal(t, float32(0.5), loud[0])

	// hold is 200 samples at 1 kHz
	quiet := constant(0.001, 100)
	g.Process(quiet)
	g.Process(quiet)
	assert.True(t, g.IsOpen())
	assert.Equal(t, float32(0.001), quiet[0])

	quiet = constant(0.001, 100)
	g.Process(quiet)
	assert.False(t, g.IsOpen())
	assert.Equal(t, float32(0), quiet[50])
}

func TestEchoCancellerRemovesPlayback(t *testing.T) {
	const sampleRate = 8000
	e := NewEchoCanceller(sampleRate)

	far := sine(300, 0.5, sampleRate, sampleRate*4)
	delay := sampleRate * EchoDefaultDelayMs / 1000

	var before, after float32
	for start := 0; start+160 <= len(far); start += 160 {
		e.FeedFarEnd(far[start : start+160])

		near := make([]float32, 160)
		for i := range near {
			idx := start + i - delay
			if idx >= 0 {
				near[i] = 0.6 * far[idx]
			}
		}

		if start == 160*10 {
			before = RMS(near)
		}
		e.Process(near)
		after = RMS(near)
	}

	assert.Greater(t, before, float32(0.1))
	assert.Less(t, after, before/4)
}
