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
	"fmt"

	"fox-ambient/model"
)

func NewBackend(config *model.Config) (Backend, error) {
	switch config.Backend {
	case model.BackendMalgo, "":
		return NewMalgoBackend(config.Malgo), nil
	case model.BackendJack:
		return NewJackBackend(config.Jack), nil
	case model.BackendSimulate:
		return NewSimulatedBackend(config.Simulation), nil
	}

	return nil, fmt.Errorf("unknown audio backend %q", config.Backend)
}
