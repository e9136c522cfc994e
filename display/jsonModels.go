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
package display

type JsonStatus struct {
	MessageType string `json:"message_type"`

	Status     string  `json:"status"`
	Backend    string  `json:"backend"`
	SessionID  string  `json:"session_id,omitempty"`
	Duration   float64 `json:"duration"`
	ErrorCount int     `json:"error_count"`
	Error      string  `json:"error,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`

	MicGain       int     `json:"mic_gain"`
	OutputVolume  int     `json:"output_volume"`
	EchoCancel    bool    `json:"echo_cancel"`
	NoiseSuppress bool    `json:"noise_suppress"`
	AutoGain      bool    `json:"auto_gain"`
	Latency       string  `json:"latency"`
	ReductionDb   float64 `json:"compressor_reduction_db"`
}

type JsonLog struct {
	MessageType string `json:"message_type"`

	Date    string `json:"date"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type JsonLevels struct {
	MessageType string `json:"message_type"`

	Level     int `json:"level"`
	PeakLevel int `json:"peak_level"`
}

type JsonUnsupported struct {
	MessageType string `json:"message_type"`

	Message string `json:"message"`
}
