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
	AgcDefaultTarget = 0.20
	AgcMinGain       = 0.1
	AgcMaxGain       = 10.0

	agcAttackCoeff  = 0.80
	agcReleaseCoeff = 0.02
	agcMinRMS       = 0.001
)

// AutoGain moves a multiplicative gain toward the level that brings the frame
// RMS to the target. Gain drops quickly on loud frames and recovers slowly.
type AutoGain struct {
	target float64
	gain   float64
}

func NewAutoGain() *AutoGain {
	return &AutoGain{target: AgcDefaultTarget, gain: 1.0}
}

func (a *AutoGain) SetTarget(target float64) {
	if target <= 0 {
		target = AgcDefaultTarget
	}
	a.target = target
}

func (a *AutoGain) Gain() float64 {
	return a.gain
}

func (a *AutoGain) Process(frame []float32) {
	if len(frame) == 0 {
		return
	}

	rms := float64(RMS(frame))

	gain := float32(a.gain)
	for i, s := range frame {
		frame[i] = clamp(s * gain)
	}

	// silent frames would otherwise drag the gain to its ceiling
	if rms < agcMinRMS {
		return
	}

	desired := a.target / rms
	if desired < AgcMinGain {
		desired = AgcMinGain
	} else if desired > AgcMaxGain {
		desired = AgcMaxGain
	}

	coeff := agcReleaseCoeff
	if desired < a.gain {
		coeff = agcAttackCoeff
	}
	a.gain += coeff * (desired - a.gain)
}

func (a *AutoGain) Reset() {
	a.gain = 1.0
}
