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
package model

const (
	CaptureSampleRate    = 44100
	CaptureSampleSize    = 16
	CaptureChannelCount  = 1
	CaptureTargetLatency = 0.01
	CaptureVolume        = 1.0
)

// CaptureConstraints is the immutable request handed to a backend when a
// capture stream is acquired. A fresh snapshot is built on every start.
type CaptureConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	SampleSize       int
	ChannelCount     int
	TargetLatency    float64
	Volume           float64
}

func ConstraintsFor(prefs Preferences) CaptureConstraints {
	return CaptureConstraints{
		EchoCancellation: prefs.EchoCancel,
		NoiseSuppression: prefs.NoiseSuppress,
		AutoGainControl:  prefs.AutoGain,
		SampleRate:       CaptureSampleRate,
		SampleSize:       CaptureSampleSize,
		ChannelCount:     CaptureChannelCount,
		TargetLatency:    CaptureTargetLatency,
		Volume:           CaptureVolume,
	}
}

// TargetLatencyFrames converts the requested latency to a frame count at the
// constraint's sample rate, never less than one frame.
func (c CaptureConstraints) TargetLatencyFrames() int {
	frames := int(c.TargetLatency * float64(c.SampleRate))
	if frames < 1 {
		frames = 1
	}
	return frames
}
