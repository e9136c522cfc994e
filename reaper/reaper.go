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
package reaper

import (
	"log/slog"
	"slices"
	"sync"
)

// Process wide shutdown: callbacks run once, newest first, and Wait blocks
// until every registered goroutine reports Done.
var (
	lock                sync.Mutex
	reapRequested       chan struct{}
	reaperCallbacks     []callback
	reaperRegistrations []string
	reaperWaitgroup     *sync.WaitGroup
)

type callback struct {
	name         string
	callbackFunc func()
}

func init() {
	reset()
}

func reset() {
	lock.Lock()
	defer lock.Unlock()

	reapRequested = make(chan struct{})
	reaperCallbacks = make([]callback, 0)
	reaperRegistrations = make([]string, 0)
	reaperWaitgroup = &sync.WaitGroup{}
}

func Reaped() bool {
	select {
	case <-Requested():
		return true
	default:
		return false
	}
}

// Requested is closed once Reap has been called.
func Requested() <-chan struct{} {
	lock.Lock()
	defer lock.Unlock()

	return reapRequested
}

func Reap() {
	lock.Lock()
	select {
	case <-reapRequested:
		lock.Unlock()
		return
	default:
	}
	close(reapRequested)

	callbacksReversed := slices.Clone(reaperCallbacks)
	lock.Unlock()

	slices.Reverse(callbacksReversed)

	for _, callback := range callbacksReversed {
		slog.Info("reaper: calling reap callback for '" + callback.name + "'")
		callback.callbackFunc()
	}
}

func Callback(name string, callbackFunc func()) {
	lock.Lock()
	defer lock.Unlock()

	reaperCallbacks = append(reaperCallbacks, callback{
		name:         name,
		callbackFunc: callbackFunc,
	})
}

func Register(name string) {
	lock.Lock()
	defer lock.Unlock()

	if slices.Contains(reaperRegistrations, name) {
		slog.Warn("reaper: already registered '" + name + "'")
		return
	}

	reaperRegistrations = append(reaperRegistrations, name)
	reaperWaitgroup.Add(1)
	slog.Debug("reaper: registered '" + name + "'")
}

func Done(name string) {
	lock.Lock()
	defer lock.Unlock()

	if !slices.Contains(reaperRegistrations, name) {
		slog.Warn("reaper: already done or doesn't exist: '" + name + "'")
		return
	}

	reaperRegistrations = slices.DeleteFunc(reaperRegistrations, func(test string) bool {
		return test == name
	})

	slog.Debug("reaper: done: '" + name + "'")
	reaperWaitgroup.Done()
}

func Wait() {
	lock.Lock()
	wg := reaperWaitgroup
	lock.Unlock()

	wg.Wait()
}
