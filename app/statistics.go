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
	"fmt"
	"sync"
	"time"

	"fox-ambient/controller"
	"fox-ambient/display"
	"fox-ambient/model"
	"fox-ambient/reaper"
	"fox-ambient/util"
)

// statistics tracks how long the current session has been live.
type statistics struct {
	lock        sync.Mutex
	sessionID   string
	activeSince time.Time
	now         func() time.Time
}

func newStatistics() *statistics {
	return &statistics{now: time.Now}
}

func (s *statistics) observe(snapshot controller.Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if snapshot.Status != model.StatusActive {
		s.sessionID = ""
		s.activeSince = time.Time{}
		return
	}

	if snapshot.SessionID != s.sessionID {
		s.sessionID = snapshot.SessionID
		s.activeSince = s.now()
	}
}

// duration is the number of seconds the current session has been active.
func (s *statistics) duration() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.activeSince.IsZero() {
		return 0
	}

	return s.now().Sub(s.activeSince).Seconds()
}

// initStatistics starts the periodic stats loops and returns the function
// that stops them.
func initStatistics(ui display.UI, ctrl *controller.Controller) func() {
	stats := newStatistics()
	shutdownChan := make(chan struct{})

	stats.observe(ctrl.Snapshot())
	unsubscribe := ctrl.Subscribe(stats.observe)

	processOnInterval("session duration stats", shutdownChan, 100, func() {
		ui.SetDuration(stats.duration())
	})

	processOnInterval("session trace stats", shutdownChan, 1000, func() {
		snapshot := ctrl.Snapshot()
		if snapshot.Status != model.StatusActive {
			return
		}

		util.TraceLog(fmt.Sprintf("level %d, compressor %0.1f dB, mic gain %d%%, volume %d%%",
			snapshot.Level, snapshot.Reduction, snapshot.Preferences.MicGain, snapshot.Preferences.OutputVolume),
			"session", snapshot.SessionID)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(shutdownChan)
		})
	}
}

func processOnInterval(name string, shutdownChan chan struct{}, milliseconds int, process func()) {
	reaper.Register(name)

	go func() {
		defer reaper.Done(name)

		process()

		t := time.NewTicker(time.Duration(milliseconds) * time.Millisecond)
		defer t.Stop()

		for {
			select {
			case <-shutdownChan:
				return
			case <-t.C:
				process()
			}
		}
	}()
}
