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
package util

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"fox-ambient/model"
)

const DefaultConfigFile = "fox-ambient.yaml"

var backends = []string{model.BackendMalgo, model.BackendJack, model.BackendSimulate}

// ReadConfig builds the runtime configuration: defaults, then the yaml file
// if one is found, then any command line overrides.
func ReadConfig(args *model.CommandLineArgs) (*model.Config, error) {
	config := model.DefaultConfig()

	configFile := args.ConfigFile
	if configFile == "" {
		configFile = DefaultConfigFile
	}

	if err := ReadYamlFile(config, configFile); err != nil {
		if args.ConfigFile != "" && args.ConfigFile != DefaultConfigFile {
			return nil, fmt.Errorf("failed to read config %s: %w", args.ConfigFile, err)
		}
		slog.Debug("Using default configuration: " + err.Error())
	}

	if args.OutputType != "" {
		outputType, ok := model.OutputTypeMap[strings.ToLower(args.OutputType)]
		if !ok {
			outputTypes := make([]string, 0, len(model.OutputTypeMap))
			for key := range model.OutputTypeMap {
				outputTypes = append(outputTypes, key)
			}
			slices.Sort(outputTypes)

			return nil, fmt.Errorf("invalid output type specified: %s. Valid options: %s", args.OutputType, strings.Join(outputTypes, ", "))
		}
		config.OutputType = outputType
	}

	if args.Backend != "" {
		config.Backend = strings.ToLower(args.Backend)
	}

	if args.Simulate {
		config.Backend = model.BackendSimulate
	}

	if !slices.Contains(backends, config.Backend) {
		return nil, fmt.Errorf("invalid backend specified: %s. Valid options: %s", config.Backend, strings.Join(backends, ", "))
	}

	if args.MeterInterval > 0 {
		config.MeterIntervalMs = args.MeterInterval
	}

	if args.HttpListen != "" {
		config.Http.Enabled = true
		config.Http.Listen = args.HttpListen
	}

	if args.LogFile != "" {
		config.LogFile = args.LogFile
	}

	if args.AutoStart {
		config.AutoStart = true
	}

	if args.Verbose {
		config.LogLevel = int(slog.LevelDebug)
	}

	fillDefaults(config)

	return config, nil
}

// fillDefaults restores sections a config file blanked out.
func fillDefaults(config *model.Config) {
	defaults := model.DefaultConfig()

	if config.MeterIntervalMs <= 0 {
		config.MeterIntervalMs = defaults.MeterIntervalMs
	}

	if config.RestartDelayMs <= 0 {
		config.RestartDelayMs = defaults.RestartDelayMs
	}

	if config.Jack == nil {
		config.Jack = defaults.Jack
	}

	if config.Malgo == nil {
		config.Malgo = defaults.Malgo
	}

	if config.Simulation == nil {
		config.Simulation = defaults.Simulation
	}

	if config.NowPlaying == nil {
		config.NowPlaying = defaults.NowPlaying
	}

	if config.Http == nil {
		config.Http = defaults.Http
	}
}
