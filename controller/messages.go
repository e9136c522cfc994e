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
package controller

import (
	"errors"

	"fox-ambient/audio"
)

// UserMessage turns a lifecycle error into the sentence shown to the user.
func UserMessage(err error) string {
	if err == nil || errors.Is(err, ErrStartCancelled) {
		return ""
	}

	switch audio.KindOf(err) {
	case audio.ErrPermissionDenied:
		return "Microphone access was denied. Allow this terminal to use the microphone, then press start again."
	case audio.ErrDeviceNotFound:
		return "No microphone was found. Connect an input device, then press start again."
	case audio.ErrDeviceBusy:
		return "The microphone is being used by another application. Close it, then press start again."
	case audio.ErrUnknownCapture:
		return "The microphone could not be opened. Check your audio settings and try again."
	case audio.ErrEngineUnavailable:
		return "The audio output could not be started. Check your speakers or headphones and try again."
	case audio.ErrPlatformUnsupported:
		return "Live audio is not supported on this system."
	}

	return err.Error()
}
