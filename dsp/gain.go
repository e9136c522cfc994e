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

// Gain is a linear gain stage. The value may be changed while the stage is
// processing; the next frame picks it up.
type Gain struct {
	bits atomic.Uint64
}

func NewGain(value float64) *Gain {
	g := &Gain{}
	g.SetGain(value)
	return g
}

func (g *Gain) SetGain(value float64) {
	if value < 0 {
		value = 0
	}
	g.bits.Store(math.Float64bits(value))
}

func (g *Gain) Gain() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *Gain) Process(frame []float32) {
	gain := float32(g.Gain())

	if gain == 1.0 {
		return
	}

	for i, s := range frame {
		frame[i] = s * gain
	}
}
