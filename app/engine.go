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
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fox-ambient/audio"
	"fox-ambient/controller"
	"fox-ambient/display"
	"fox-ambient/metrics"
	"fox-ambient/model"
	"fox-ambient/nowplaying"
	"fox-ambient/reaper"
	"fox-ambient/shared"
)

func newDisplay(outputType model.OutputType) display.UI {
	if outputType == model.OutputJSON {
		return display.NewJsonUI(os.Stdout)
	}
	return display.NewTui()
}

// configureLogging sends slog records to the UI and, when configured, to a
// rotated log file. The returned closer is nil without a log file.
func configureLogging(config *model.Config, ui display.UI) (io.Closer, error) {
	level := slog.Level(config.LogLevel)

	handlers := []slog.Handler{
		shared.NewUiLogHandler(ui, level, func(string) {
			ui.IncrementErrorCount()
		}),
	}

	var closer io.Closer
	if config.LogFile != "" {
		fileHandler, fileCloser, err := shared.NewFileHandler(config.LogFile, level)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, fileHandler)
		closer = fileCloser
	}

	slog.SetDefault(slog.New(shared.NewMultiHandler(handlers...)))

	if config.OutputType == model.OutputTUI {
		shared.HijackLogging()
	}

	return closer, nil
}

// volumeSync forwards output volume changes to the now-playing reporters.
func volumeSync(reporter nowplaying.Reporter) func(controller.Snapshot) {
	var lock sync.Mutex
	last := -1

	return func(snapshot controller.Snapshot) {
		volume := snapshot.Preferences.OutputVolume

		lock.Lock()
		changed := volume != last
		last = volume
		lock.Unlock()

		if changed {
			reporter.SetVolume(volume)
		}
	}
}

func runEngine(config *model.Config) error {
	backend, err := audio.NewBackend(config)
	if err != nil {
		return err
	}

	ui := newDisplay(config.OutputType)
	ui.Initalize()

	logCloser, err := configureLogging(config, ui)
	if err != nil {
		backend.Close()
		return err
	}
	defer shared.RestoreLogging()
	if logCloser != nil {
		defer logCloser.Close()
	}

	// callbacks run newest first, so this one finishes the reap
	reaper.Register("engine")
	reaper.Callback("engine", func() { reaper.Done("engine") })

	ui.Start()
	reaper.Callback("display", ui.Shutdown)

	stopSignals := shared.CatchSigint(func() {
		slog.Info("Caught signal, calling reaper")
		go reaper.Reap()
	})
	defer stopSignals()

	reaper.Callback("audio backend", func() {
		if err := backend.Close(); err != nil {
			slog.Warn("Failed to close audio backend: " + err.Error())
		}
	})

	if err := backend.Probe(); err != nil {
		slog.Error("Audio backend cannot run here", "backend", backend.Name(), "error", err.Error())
		ui.ShowUnsupported(controller.UserMessage(err))

		reaper.Wait()
		return nil
	}

	registry := prometheus.NewRegistry()
	collectors, err := metrics.NewMetrics(registry)
	if err != nil {
		slog.Warn("Metrics unavailable: " + err.Error())
	}

	reporters := nowplaying.NewMulti()
	options := controller.Options{
		Backend:       backend,
		Preferences:   model.DefaultPreferences(),
		MeterInterval: time.Duration(config.MeterIntervalMs) * time.Millisecond,
		RestartDelay:  time.Duration(config.RestartDelayMs) * time.Millisecond,
		Reporter:      reporters,
	}
	if collectors != nil {
		options.Observer = collectors
	}

	ctrl := controller.New(options)
	reaper.Callback("controller", ctrl.Teardown)

	ctrl.Subscribe(ui.Update)
	ui.Update(ctrl.Snapshot())
	ui.SetActions(&uiActions{ctrl: ctrl})

	if collectors != nil {
		ctrl.Subscribe(collectors.Observe)
		collectors.Observe(ctrl.Snapshot())
	}

	reporters.Add(nowplaying.Connect(config.NowPlaying, nowplaying.ControllerActions(ctrl)))
	ctrl.Subscribe(volumeSync(reporters))
	reaper.Callback("now playing", func() {
		if err := reporters.Close(); err != nil {
			slog.Warn("Failed to close now playing integrations: " + err.Error())
		}
	})

	if config.Http.Enabled && collectors != nil {
		server := metrics.NewServer(config.Http.Listen, ctrl, registry)
		server.Start()
		reaper.Callback("http server", server.Shutdown)
	}

	reaper.Callback("stats", initStatistics(ui, ctrl))

	slog.Info("Ready", "backend", backend.Name(), "output", config.OutputType.String())

	if config.AutoStart {
		go startSession(ctrl)
	}

	reaper.Wait()
	return nil
}
