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
package nowplaying

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"fox-ambient/controller"
	"fox-ambient/model"
)

// VolumeStep is the change applied by the desktop's next/previous and volume
// keys, in percent.
const VolumeStep = 10

// Reporter publishes what fox-ambient is doing to a desktop integration.
type Reporter interface {
	SetMetadata(title string, description string)
	SetPlaying(playing bool)
	SetVolume(percent int)
	Close() error
}

// Actions are the transitions a desktop integration may trigger. They do the
// same thing as the matching key in the UI.
type Actions interface {
	Play()
	Pause()
	Toggle()
	Stop()
	VolumeUp()
	VolumeDown()
	SetVolume(percent int)
}

type controllerActions struct {
	ctrl *controller.Controller
}

// ControllerActions routes desktop media keys to ctrl.
func ControllerActions(ctrl *controller.Controller) Actions {
	return &controllerActions{ctrl: ctrl}
}

func (a *controllerActions) Play() {
	go func() {
		if err := a.ctrl.Start(context.Background()); err != nil && !errors.Is(err, controller.ErrStartCancelled) {
			slog.Warn("Play from media keys failed: " + err.Error())
		}
	}()
}

func (a *controllerActions) Pause() {
	a.ctrl.Stop()
}

func (a *controllerActions) Toggle() {
	switch a.ctrl.Status() {
	case model.StatusIdle:
		a.Play()
	case model.StatusStarting, model.StatusActive:
		a.ctrl.Stop()
	}
}

func (a *controllerActions) Stop() {
	a.ctrl.Stop()
}

func (a *controllerActions) VolumeUp() {
	a.ctrl.StepOutputVolume(VolumeStep)
}

func (a *controllerActions) VolumeDown() {
	a.ctrl.StepOutputVolume(-VolumeStep)
}

func (a *controllerActions) SetVolume(percent int) {
	a.ctrl.SetOutputVolume(percent)
}

// Multi fans every report out to a set of reporters. Reporters can be
// added after it has been handed to the controller.
type Multi struct {
	mu        sync.RWMutex
	reporters []Reporter
}

func NewMulti(reporters ...Reporter) *Multi {
	multi := &Multi{}
	multi.Add(reporters...)
	return multi
}

func (m *Multi) Add(reporters ...Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, reporter := range reporters {
		if reporter != nil {
			m.reporters = append(m.reporters, reporter)
		}
	}
}

func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.reporters)
}

func (m *Multi) each(fn func(Reporter)) {
	m.mu.RLock()
	reporters := slices.Clone(m.reporters)
	m.mu.RUnlock()

	for _, reporter := range reporters {
		fn(reporter)
	}
}

func (m *Multi) SetMetadata(title string, description string) {
	m.each(func(r Reporter) { r.SetMetadata(title, description) })
}

func (m *Multi) SetPlaying(playing bool) {
	m.each(func(r Reporter) { r.SetPlaying(playing) })
}

func (m *Multi) SetVolume(percent int) {
	m.each(func(r Reporter) { r.SetVolume(percent) })
}

func (m *Multi) Close() error {
	var errs []error
	m.each(func(r Reporter) { errs = append(errs, r.Close()) })
	return errors.Join(errs...)
}

// Connect brings up every integration enabled in options. Integrations that
// cannot connect are logged and left out.
func Connect(options *model.NowPlayingOptions, actions Actions) *Multi {
	reporters := make([]Reporter, 0, 2)

	if options == nil {
		return NewMulti()
	}

	if options.Mpris {
		mpris, err := NewMpris(actions)
		if err != nil {
			slog.Warn("MPRIS integration unavailable: " + err.Error())
		} else {
			reporters = append(reporters, mpris)
		}
	}

	if options.DiscordAppID != "" {
		discord, err := NewDiscord(options.DiscordAppID)
		if err != nil {
			slog.Warn("Discord integration unavailable: " + err.Error())
		} else {
			reporters = append(reporters, discord)
		}
	}

	return NewMulti(reporters...)
}
