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

import (
	"log/slog"

	"fox-ambient/controller"
)

// Actions are the controller transitions reachable from the keyboard.
type Actions interface {
	ToggleSession()
	StepMicGain(delta int)
	StepOutputVolume(delta int)
	ToggleEchoCancel()
	ToggleNoiseSuppress()
	ToggleAutoGain()
	CycleLatencyMode()
	Quit()
}

type UI interface {
	Initalize()
	Start()
	Shutdown()
	IsShutdown() bool
	WaitForShutdown()
	SetActions(actions Actions)
	Update(snapshot controller.Snapshot)
	SetDuration(duration float64)
	IncrementErrorCount()
	ShowUnsupported(message string)
	WriteLevelLog(level slog.Level, message string)
}
