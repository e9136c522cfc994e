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

type OutputType int

const (
	OutputTUI OutputType = iota
	OutputJSON
)

var OutputTypeMap = map[string]OutputType{
	"tui":  OutputTUI,
	"json": OutputJSON,
}

func (o OutputType) String() string {
	for name, value := range OutputTypeMap {
		if value == o {
			return name
		}
	}
	return "unknown"
}

// UnmarshalYAML accepts the output type by name.
func (o *OutputType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	value, ok := OutputTypeMap[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("invalid output type %q", name)
	}

	*o = value
	return nil
}

type CommandLineArgs struct {
	ConfigFile    string
	Backend       string
	OutputType    string
	Simulate      bool
	MeterInterval int
	HttpListen    string
	LogFile       string
	Verbose       bool
	AutoStart     bool
}

type Config struct {
	Backend         string     `yaml:"backend,omitempty"`
	LogLevel        int        `yaml:"log_level,omitempty"`
	LogFile         string     `yaml:"log_file,omitempty"`
	OutputType      OutputType `yaml:"output_type,omitempty"`
	MeterIntervalMs int        `yaml:"meter_interval_ms,omitempty"`
	RestartDelayMs  int        `yaml:"restart_delay_ms,omitempty"`
	AutoStart       bool       `yaml:"auto_start,omitempty"`

	Jack       *JackOptions       `yaml:"jack"`
	Malgo      *MalgoOptions      `yaml:"malgo"`
	Simulation *SimulationOptions `yaml:"simulation"`
	NowPlaying *NowPlayingOptions `yaml:"now_playing"`
	Http       *HttpOptions       `yaml:"http"`
}

type JackOptions struct {
	ClientName         string `yaml:"client_name,omitempty"`
	CapturePort        string `yaml:"capture_port,omitempty"`
	PlaybackPortPrefix string `yaml:"playback_port_prefix,omitempty"`
	PlaybackChannels   int    `yaml:"playback_channels,omitempty"`
}

type MalgoOptions struct {
	PlaybackChannels int `yaml:"playback_channels,omitempty"`
}

type SimulationOptions struct {
	WavFile   string  `yaml:"wav_file,omitempty"`
	ToneHz    float64 `yaml:"tone_hz,omitempty"`
	ToneLevel float64 `yaml:"tone_level,omitempty"`
}

type NowPlayingOptions struct {
	Mpris        bool   `yaml:"mpris,omitempty"`
	DiscordAppID string `yaml:"discord_app_id,omitempty"`
}

type HttpOptions struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

const (
	BackendMalgo    = "malgo"
	BackendJack     = "jack"
	BackendSimulate = "simulate"
)

// DefaultConfig returns the configuration used when no config file is found.
func DefaultConfig() *Config {
	return &Config{
		Backend:         BackendMalgo,
		LogLevel:        0,
		OutputType:      OutputTUI,
		MeterIntervalMs: 16,
		RestartDelayMs:  100,

		Jack: &JackOptions{
			ClientName:         "fox-ambient",
			CapturePort:        "system:capture_1",
			PlaybackPortPrefix: "system:playback_",
			PlaybackChannels:   2,
		},
		Malgo: &MalgoOptions{
			PlaybackChannels: 2,
		},
		Simulation: &SimulationOptions{
			ToneHz:    440,
			ToneLevel: 0.25,
		},
		NowPlaying: &NowPlayingOptions{
			Mpris: true,
		},
		Http: &HttpOptions{
			Enabled: false,
			Listen:  "127.0.0.1:7274",
		},
	}
}
