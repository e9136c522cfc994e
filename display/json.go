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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"fox-ambient/controller"
	"fox-ambient/model"
)

// JsonUI prints one JSON object per line: a status and a levels message
// on every tick, and a log message for every record.
type JsonUI struct {
	shutdownChannel chan struct{}
	doneChannel     chan struct{}
	shutdownOnce    sync.Once
	interval        time.Duration

	outputLock sync.Mutex
	output     io.Writer

	mu          sync.Mutex
	snapshot    controller.Snapshot
	duration    float64
	errorCount  int
	peakLevel   int
	unsupported bool
}

//
// constructor
//

func NewJsonUI(output io.Writer) *JsonUI {
	return &JsonUI{
		shutdownChannel: make(chan struct{}),
		doneChannel:     make(chan struct{}),
		interval:        1 * time.Second,
		output:          output,
		snapshot: controller.Snapshot{
			Status:      model.StatusIdle,
			State:       model.StatusIdle.String(),
			Preferences: model.DefaultPreferences(),
			Latency:     model.LatencyInteractive.String(),
		},
	}
}

func (j *JsonUI) Initalize() {
	// nothing to do here
}

func (j *JsonUI) Start() {
	go j.excecuteLoop()
}

func (j *JsonUI) excecuteLoop() {
	defer close(j.doneChannel)

	slog.Debug("JSON loop started")

	t := time.NewTicker(j.interval)
	defer t.Stop()

	for {
		select {
		case <-j.shutdownChannel:
			return
		case <-t.C:
			j.flush()
		}
	}
}

func (j *JsonUI) flush() {
	j.mu.Lock()
	unsupported := j.unsupported
	j.mu.Unlock()

	if unsupported {
		return
	}

	j.printJson(j.getStatus())
	j.printJson(j.getLevels())
}

func (j *JsonUI) Shutdown() {
	slog.Debug("Shutting down JSON UI")
	j.shutdownOnce.Do(func() { close(j.shutdownChannel) })

	j.WaitForShutdown()
}

func (j *JsonUI) IsShutdown() bool {
	select {
	case <-j.doneChannel:
		return true
	default:
		return false
	}
}

func (j *JsonUI) WaitForShutdown() {
	<-j.doneChannel
}

// SetActions is a no-op: the JSON output has no keyboard input.
func (j *JsonUI) SetActions(actions Actions) {}

func (j *JsonUI) Update(snapshot controller.Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if snapshot.SessionID != j.snapshot.SessionID {
		j.peakLevel = 0
	}

	j.snapshot = snapshot
	j.peakLevel = max(j.peakLevel, snapshot.Level)
}

func (j *JsonUI) SetDuration(duration float64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.duration = duration
}

func (j *JsonUI) IncrementErrorCount() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.errorCount += 1
}

func (j *JsonUI) ShowUnsupported(message string) {
	j.mu.Lock()
	j.unsupported = true
	j.mu.Unlock()

	j.printJson(&JsonUnsupported{
		MessageType: "unsupported",
		Message:     message,
	})
}

func (j *JsonUI) WriteLevelLog(level slog.Level, message string) {
	j.printJson(&JsonLog{
		MessageType: "log",

		Date:    time.Now().Format(time.RFC3339),
		Level:   level.String(),
		Message: message,
	})
}

//
// private functions
//

func (j *JsonUI) printJson(v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		// logging here would recurse through the UI log handler
		return
	}

	j.outputLock.Lock()
	defer j.outputLock.Unlock()

	fmt.Fprintln(j.output, string(jsonBytes))
}

func (j *JsonUI) getStatus() *JsonStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := j.snapshot

	return &JsonStatus{
		MessageType: "status",

		Status:     s.State,
		Backend:    s.Backend,
		SessionID:  s.SessionID,
		Duration:   j.duration,
		ErrorCount: j.errorCount,
		Error:      s.Error,
		ErrorKind:  s.ErrorKind,

		MicGain:       s.Preferences.MicGain,
		OutputVolume:  s.Preferences.OutputVolume,
		EchoCancel:    s.Preferences.EchoCancel,
		NoiseSuppress: s.Preferences.NoiseSuppress,
		AutoGain:      s.Preferences.AutoGain,
		Latency:       s.Latency,
		ReductionDb:   s.Reduction,
	}
}

func (j *JsonUI) getLevels() *JsonLevels {
	j.mu.Lock()
	defer j.mu.Unlock()

	return &JsonLevels{
		MessageType: "levels",

		Level:     j.snapshot.Level,
		PeakLevel: j.peakLevel,
	}
}
