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
	"fox-ambient/dsp"
	"fox-ambient/model"
)

// Conditioner is the processing a capture device applies before samples
// reach the graph: echo cancellation, noise suppression, automatic gain and
// the requested volume, each enabled by the capture constraints.
type Conditioner struct {
	echo   *dsp.EchoCanceller
	gate   *dsp.NoiseGate
	agc    *dsp.AutoGain
	volume float32
}

func NewConditioner(constraints model.CaptureConstraints) *Conditioner {
	c := &Conditioner{
		volume: float32(constraints.Volume),
	}

	if constraints.EchoCancellation {
		c.echo = dsp.NewEchoCanceller(constraints.SampleRate)
	}

	if constraints.NoiseSuppression {
		c.gate = dsp.NewNoiseGate(constraints.SampleRate)
	}

	if constraints.AutoGainControl {
		c.agc = dsp.NewAutoGain()
	}

	return c
}

func (c *Conditioner) Process(frame []float32) {
	if c.echo != nil {
		c.echo.Process(frame)
	}

	if c.gate != nil {
		c.gate.Process(frame)
	}

	if c.agc != nil {
		c.agc.Process(frame)
	}

	if c.volume != 1.0 {
		for i, s := range frame {
			frame[i] = s * c.volume
		}
	}
}

func (c *Conditioner) FeedFarEnd(frame []float32) {
	if c.echo != nil {
		c.echo.FeedFarEnd(frame)
	}
}

func (c *Conditioner) EchoCancelling() bool {
	return c.echo != nil
}

func (c *Conditioner) NoiseSuppressing() bool {
	return c.gate != nil
}

func (c *Conditioner) AutoGaining() bool {
	return c.agc != nil
}
