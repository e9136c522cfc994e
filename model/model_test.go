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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestConstraintsForCopiesPreferences(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.AutoGain = true
	prefs.EchoCancel = false

	constraints := ConstraintsFor(prefs)

	assert.False(t, constraints.EchoCancellation)
	assert.True(t, constraints.NoiseSuppression)
	assert.True(t, constraints.AutoGainControl)
	assert.Equal(t, 44100, constraints.SampleRate)
	assert.Equal(t, 16, constraints.SampleSize)
	assert.Equal(t, 1, constraints.ChannelCount)
	assert.Equal(t, 0.01, constraints.TargetLatency)
	assert.Equal(t, 1.0, constraints.Volume)
	assert.Equal(t, 441, constraints.TargetLatencyFrames())
}

func TestTargetLatencyFramesNeverZero(t *testing.T) {
	constraints := CaptureConstraints{SampleRate: 8000, TargetLatency: 0}
	assert.Equal(t, 1, constraints.TargetLatencyFrames())
}

func TestLatencyModeCycleAndParse(t *testing.T) {
	assert.Equal(t, LatencyBalanced, LatencyInteractive.Next())
	assert.Equal(t, LatencyPlayback, LatencyBalanced.Next())
	assert.Equal(t, LatencyInteractive, LatencyPlayback.Next())

	assert.Equal(t, 10, LatencyInteractive.PeriodMillis())
	assert.Equal(t, 20, LatencyBalanced.PeriodMillis())
	assert.Equal(t, 40, LatencyPlayback.PeriodMillis())

	mode, err := ParseLatencyMode("Playback")
	require.NoError(t, err)
	assert.Equal(t, LatencyPlayback, mode)

	_, err = ParseLatencyMode("fast")
	assert.Error(t, err)
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-10))
	assert.Equal(t, 55, ClampPercent(55))
	assert.Equal(t, 100, ClampPercent(120))
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	assert.Equal(t, 80, prefs.MicGain)
	assert.Equal(t, 60, prefs.OutputVolume)
	assert.True(t, prefs.EchoCancel)
	assert.True(t, prefs.NoiseSuppress)
	assert.False(t, prefs.AutoGain)
	assert.Equal(t, LatencyInteractive, prefs.Latency)
}

func TestOutputTypeYaml(t *testing.T) {
	config := struct {
		Output OutputType `yaml:"output"`
	}{}

	require.NoError(t, yaml.Unmarshal([]byte("output: JSON\n"), &config))
	assert.Equal(t, OutputJSON, config.Output)
	assert.Equal(t, "json", config.Output.String())

	assert.Error(t, yaml.Unmarshal([]byte("output: xml\n"), &config))
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "Idle", StatusIdle.String())
	assert.Equal(t, "Stopping", StatusStopping.String())
	assert.Equal(t, "Unknown", Status(42).String())
}
