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
package app

import (
	"context"
	"errors"
	"log/slog"

	"fox-ambient/audio"
	"fox-ambient/controller"
	"fox-ambient/model"
	"fox-ambient/reaper"
)

// uiActions maps keyboard input onto controller transitions.
type uiActions struct {
	ctrl *controller.Controller
}

func (a *uiActions) ToggleSession() {
	switch a.ctrl.Status() {
	case model.StatusIdle:
		startSession(a.ctrl)
	case model.StatusStarting, model.StatusActive:
		a.ctrl.Stop()
	}
}

func (a *uiActions) StepMicGain(delta int) {
	a.ctrl.StepMicGain(delta)
}

func (a *uiActions) StepOutputVolume(delta int) {
	a.ctrl.StepOutputVolume(delta)
}

func (a *uiActions) ToggleEchoCancel() {
	a.ctrl.ToggleEchoCancel()
}

func (a *uiActions) ToggleNoiseSuppress() {
	a.ctrl.ToggleNoiseSuppress()
}

func (a *uiActions) ToggleAutoGain() {
	a.ctrl.ToggleAutoGain()
}

func (a *uiActions) CycleLatencyMode() {
	a.ctrl.CycleLatencyMode()
}

func (a *uiActions) Quit() {
	reaper.Reap()
}

func startSession(ctrl *controller.Controller) {
	err := ctrl.Start(context.Background())
	if err == nil || errors.Is(err, controller.ErrStartCancelled) {
		return
	}

	if errors.Is(err, controller.ErrBusy) || errors.Is(err, controller.ErrClosed) {
		slog.Debug("Start ignored: " + err.Error())
		return
	}

	slog.Error("Failed to start listening", "kind", audio.KindName(audio.KindOf(err)), "error", err.Error())
}
