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
	"fmt"
	"strings"
)

type LatencyMode int

const (
	LatencyInteractive LatencyMode = iota
	LatencyBalanced
	LatencyPlayback
)

var latencyNames = map[LatencyMode]string{
	LatencyInteractive: "interactive",
	LatencyBalanced:    "balanced",
	LatencyPlayback:    "playback",
}

func (l LatencyMode) String() string {
	if name, ok := latencyNames[l]; ok {
		return name
	}
	return "unknown"
}

// PeriodMillis is the processing period requested from the engine for this hint.
func (l LatencyMode) PeriodMillis() int {
	switch l {
	case LatencyBalanced:
		return 20
	case LatencyPlayback:
		return 40
	}
	return 10
}

// Next cycles through the latency modes, wrapping back to interactive.
func (l LatencyMode) Next() LatencyMode {
	return (l + 1) % LatencyMode(len(latencyNames))
}

func ParseLatencyMode(value string) (LatencyMode, error) {
	for mode, name := range latencyNames {
		if strings.EqualFold(name, value) {
			return mode, nil
		}
	}
	return LatencyInteractive, fmt.Errorf("unknown latency mode %q", value)
}

// Preferences survive stop/start cycles but are never persisted.
type Preferences struct {
	MicGain       int         `json:"mic_gain"`
	OutputVolume  int         `json:"output_volume"`
	EchoCancel    bool        `json:"echo_cancel"`
	NoiseSuppress bool        `json:"noise_suppress"`
	AutoGain      bool        `json:"auto_gain"`
	Latency       LatencyMode `json:"-"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		MicGain:       80,
		OutputVolume:  60,
		EchoCancel:    true,
		NoiseSuppress: true,
		AutoGain:      false,
		Latency:       LatencyInteractive,
	}
}

// ClampPercent limits a slider value to [0,100].
func ClampPercent(value int) int {
	if value < 0 {
		return 0
	} else if value > 100 {
		return 100
	}
	return value
}
