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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fox-ambient/controller"
	"fox-ambient/display/custom"
	"fox-ambient/display/theme"
	"fox-ambient/model"
	"fox-ambient/reaper"
	"fox-ambient/util"

	"code.rocketnine.space/tslocum/cview"
	"github.com/gdamore/tcell/v2"
)

//
// constants
//

const (
	layoutStatusItemHeaderWidth = 14
	layoutStatusColumnIndex     = 0
	layoutMeterColumnIndex      = 1
	layoutStatusGridLeftWidth   = 48
	layoutLevelMeterWidth       = 8
	layoutToggleKeyWidth        = layoutStatusItemHeaderWidth

	// GainStep is how far one arrow key press moves the mic gain or volume.
	GainStep = 5
)

//
// variables
//

var (
	meterSteps = []int{
		100, 95, 90, 85, 80, 70, 60,
		50, 40, 30, 20, 10, 5}

	levelColors = map[int]tcell.Color{
		90: theme.Red,
		80: theme.Pink,
		60: theme.Yellow,
		20: theme.Green,
		0:  theme.SoftGreen,
	}
)

//
// types
//

type Tui struct {
	app             *cview.Application
	shutdownChannel chan struct{}
	shutdownOnce    sync.Once

	mu            sync.Mutex
	actions       Actions
	palette       theme.Palette
	unsupported   bool
	errorCount    int
	lastSessionID string

	gridApp    *cview.Grid
	gridStatus *cview.Grid
	levelMeter *custom.LevelMeter

	tvLogs       *cview.TextView
	tvHelp       *cview.TextView
	tvStatus     *custom.StatusText
	tvBackend    *custom.StatusText
	tvSession    *custom.StatusText
	tvDuration   *custom.StatusText
	tvLatency    *custom.StatusText
	tvReduction  *custom.StatusText
	tvErrorCount *custom.StatusText
	tvError      *custom.StatusText

	statusMeterMicGain *custom.StatusMeter
	statusMeterVolume  *custom.StatusMeter

	toggleEcho     *custom.ToggleField
	toggleNoise    *custom.ToggleField
	toggleAutoGain *custom.ToggleField
}

//
// constructor
//

func NewTui() *Tui {
	return &Tui{
		shutdownChannel: make(chan struct{}),
		palette:         theme.Dark,
	}
}

//
// lifecycle managment
//

func (tui *Tui) Initalize() {
	tui.app = cview.NewApplication()
	defer tui.app.HandlePanic()

	meterRowHeight := len(meterSteps) + 2

	//
	// main application grid
	tui.gridApp = cview.NewGrid()
	tui.gridApp.SetPadding(0, 0, 0, 0)
	tui.gridApp.SetColumns(-1, layoutLevelMeterWidth)
	tui.gridApp.SetRows(meterRowHeight, -1)
	tui.gridApp.SetBorders(true)

	//
	// status fields, meters and toggles
	statusRows := make([]int, meterRowHeight)
	for i := range statusRows {
		statusRows[i] = 1
	}

	tui.gridStatus = cview.NewGrid()
	tui.gridStatus.SetPadding(0, 0, 1, 1)
	tui.gridStatus.SetColumns(layoutStatusGridLeftWidth, -1)
	tui.gridStatus.SetRows(statusRows...)

	tui.tvStatus = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Status", model.StatusIdle.String())
	tui.tvBackend = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Backend", "")
	tui.tvSession = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Session", "-")
	tui.tvDuration = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Duration", util.FormatDuration(0))
	tui.tvErrorCount = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Errors", "0")
	tui.tvError = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Message", "")
	tui.tvError.SetColor(theme.Red)

	tui.gridStatus.AddItem(tui.tvStatus.GetGrid(), 0, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvBackend.GetGrid(), 1, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvSession.GetGrid(), 2, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvDuration.GetGrid(), 3, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvErrorCount.GetGrid(), 4, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvError.GetGrid(), 5, layoutStatusColumnIndex, 1, 2, 0, 0, false)

	prefs := model.DefaultPreferences()
	tui.statusMeterMicGain = custom.NewStatusMeter(layoutStatusItemHeaderWidth, "Mic Gain", prefs.MicGain, "%")
	tui.statusMeterVolume = custom.NewStatusMeter(layoutStatusItemHeaderWidth, "Volume", prefs.OutputVolume, "%")
	tui.tvLatency = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Latency", prefs.Latency.String())
	tui.tvReduction = custom.NewStatusTextField(layoutStatusItemHeaderWidth, "Compression", formatReduction(0))

	tui.gridStatus.AddItem(tui.statusMeterMicGain.GetGrid(), 0, layoutMeterColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.statusMeterVolume.GetGrid(), 1, layoutMeterColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvLatency.GetGrid(), 2, layoutMeterColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.tvReduction.GetGrid(), 3, layoutMeterColumnIndex, 1, 1, 0, 0, false)

	tui.toggleEcho = custom.NewToggleField(layoutToggleKeyWidth, 'e', "Echo cancellation", theme.RuneCheck, theme.RuneCross)
	tui.toggleNoise = custom.NewToggleField(layoutToggleKeyWidth, 'n', "Noise suppression", theme.RuneCheck, theme.RuneCross)
	tui.toggleAutoGain = custom.NewToggleField(layoutToggleKeyWidth, 'a', "Automatic gain", theme.RuneCheck, theme.RuneCross)

	tui.gridStatus.AddItem(tui.toggleEcho.GetGrid(), 7, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.toggleNoise.GetGrid(), 8, layoutStatusColumnIndex, 1, 1, 0, 0, false)
	tui.gridStatus.AddItem(tui.toggleAutoGain.GetGrid(), 9, layoutStatusColumnIndex, 1, 1, 0, 0, false)

	tui.tvHelp = cview.NewTextView()
	tui.tvHelp.SetPadding(0, 0, 1, 0)
	tui.tvHelp.SetWrap(true)
	tui.tvHelp.Write([]byte("space start/stop   up/down mic gain   left/right volume   l latency   t theme   q quit"))
	tui.gridStatus.AddItem(tui.tvHelp, meterRowHeight-2, layoutStatusColumnIndex, 2, 2, 0, 0, false)

	tui.gridApp.AddItem(tui.gridStatus, 0, 0, 1, 1, 0, 0, false)

	//
	// input level meter
	tui.levelMeter = custom.NewLevelMeter(meterSteps, levelColors)
	tui.levelMeter.SetBorder(false)
	tui.levelMeter.SetPadding(0, 0, 1, 1)
	tui.levelMeter.SetLabel("IN")
	tui.gridApp.AddItem(tui.levelMeter, 0, 1, 1, 1, 0, 0, false)

	//
	// log output view
	tui.tvLogs = cview.NewTextView()
	tui.tvLogs.SetPadding(0, 0, 1, 1)
	tui.tvLogs.SetDynamicColors(true)
	tui.tvLogs.SetMaxLines(500)
	tui.gridApp.AddItem(tui.tvLogs, 1, 0, 1, 2, 0, 0, true)

	tui.applyPalette(tui.palette)

	tui.app.SetRoot(tui.gridApp, true)
}

func (tui *Tui) Start() {
	reaper.Register("tui")

	go func() {
		defer tui.app.HandlePanic()

		// Capture user input
		tui.app.SetInputCapture(tui.eventHandler)

		if err := tui.app.Run(); err != nil {
			slog.Error("TUI failed: " + err.Error())
			go reaper.Reap()
		}

		tui.shutdownOnce.Do(func() { close(tui.shutdownChannel) })
		reaper.Done("tui")
	}()

	go tui.excecuteLoop()
}

func (tui *Tui) Shutdown() {
	slog.Debug("Shutting down TUI")
	tui.app.Stop()

	slog.Debug("Waiting for TUI to shut down")
	tui.WaitForShutdown()
}

func (tui *Tui) IsShutdown() bool {
	select {
	case <-tui.shutdownChannel:
		return true
	default:
		return false
	}
}

func (tui *Tui) WaitForShutdown() {
	<-tui.shutdownChannel
}

func (tui *Tui) SetActions(actions Actions) {
	tui.mu.Lock()
	defer tui.mu.Unlock()

	tui.actions = actions
}

// ShowUnsupported swaps the interactive surface for a static notice. Only
// quitting remains possible afterwards.
func (tui *Tui) ShowUnsupported(message string) {
	tui.mu.Lock()
	tui.unsupported = true
	palette := tui.palette
	tui.mu.Unlock()

	notice := cview.NewTextView()
	notice.SetTextAlign(cview.AlignCenter)
	notice.SetPadding(2, 0, 2, 2)
	notice.SetBackgroundColor(palette.Background)
	notice.SetTextColor(theme.Red)
	notice.Write([]byte(fmt.Sprintf("%c %s\n\npress q to quit", theme.RuneFailed, message)))

	tui.app.SetRoot(notice, true)
}

//
// private functions
//

func (tui *Tui) eventHandler(event *tcell.EventKey) *tcell.EventKey {
	// Anything handled here will be executed on the main thread
	if event.Key() == tcell.KeyCtrlC {
		go reaper.Reap()
		return nil
	}

	tui.mu.Lock()
	actions := tui.actions
	unsupported := tui.unsupported
	tui.mu.Unlock()

	if unsupported || actions == nil {
		if event.Key() == tcell.KeyRune && event.Rune() == 'q' {
			go reaper.Reap()
			return nil
		}
		return event
	}

	// controller calls can block on the device, so they run off the UI thread
	switch event.Key() {
	case tcell.KeyUp:
		go actions.StepMicGain(GainStep)
		return nil
	case tcell.KeyDown:
		go actions.StepMicGain(-GainStep)
		return nil
	case tcell.KeyRight:
		go actions.StepOutputVolume(GainStep)
		return nil
	case tcell.KeyLeft:
		go actions.StepOutputVolume(-GainStep)
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case ' ':
			go actions.ToggleSession()
		case 'e', 'E':
			go actions.ToggleEchoCancel()
		case 'n', 'N':
			go actions.ToggleNoiseSuppress()
		case 'a', 'A':
			go actions.ToggleAutoGain()
		case 'l', 'L':
			go actions.CycleLatencyMode()
		case 't', 'T':
			tui.mu.Lock()
			tui.palette = tui.palette.Next()
			palette := tui.palette
			tui.mu.Unlock()

			tui.applyPalette(palette)
			slog.Debug("Switched to " + palette.Name + " theme")
		case 'q', 'Q':
			go actions.Quit()
		default:
			return event
		}
		return nil
	}

	return event
}

func (tui *Tui) excecuteLoop() {
	defer tui.app.HandlePanic()

	slog.Debug("TUI loop started")

	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-tui.shutdownChannel:
			slog.Info("TUI shutting down")
			return
		case <-t.C:
			tui.app.QueueUpdateDraw(func() {})
		}
	}
}

func (tui *Tui) applyPalette(palette theme.Palette) {
	cview.Styles.PrimitiveBackgroundColor = palette.Background
	cview.Styles.PrimaryTextColor = palette.Foreground

	tui.gridApp.SetBackgroundColor(palette.Background)
	tui.gridApp.SetBordersColor(palette.Border)
	tui.gridStatus.SetBackgroundColor(palette.Background)

	for _, field := range []*custom.StatusText{
		tui.tvStatus, tui.tvBackend, tui.tvSession, tui.tvDuration,
		tui.tvLatency, tui.tvReduction, tui.tvErrorCount, tui.tvError,
	} {
		field.SetBaseColors(palette.Background, palette.Foreground)
	}

	for _, meter := range []*custom.StatusMeter{tui.statusMeterMicGain, tui.statusMeterVolume} {
		meter.SetBaseColors(palette.Background, palette.Foreground)
		meter.SetEmptyColor(palette.MeterEmpty)
		meter.SetColor(theme.Green)
	}

	for _, toggle := range []*custom.ToggleField{tui.toggleEcho, tui.toggleNoise, tui.toggleAutoGain} {
		toggle.SetBaseColors(palette.Background, palette.Foreground)
		toggle.SetColors(theme.Green, palette.Dimmed)
	}

	tui.levelMeter.SetBackgroundColor(palette.Background)
	tui.levelMeter.SetInactiveColor(palette.Dimmed)

	tui.tvHelp.SetBackgroundColor(palette.Background)
	tui.tvHelp.SetTextColor(theme.Gray)
	tui.tvLogs.SetBackgroundColor(palette.Background)
	tui.tvLogs.SetTextColor(palette.Foreground)
}

func formatReduction(db float64) string {
	return fmt.Sprintf("%.1f dB", db)
}

func statusIcon(status model.Status, failed bool) (rune, tcell.Color) {
	switch status {
	case model.StatusActive:
		return theme.RunePlay, theme.Green
	case model.StatusStarting, model.StatusStopping:
		return theme.RuneClock, theme.Yellow
	}

	if failed {
		return theme.RuneFailed, theme.Red
	}
	return theme.RuneStop, theme.Blue
}

//
// status update functions
//

func (tui *Tui) Update(snapshot controller.Snapshot) {
	icon, color := statusIcon(snapshot.Status, snapshot.Error != "")
	tui.tvStatus.SetCurrentValue(string(icon) + " " + snapshot.State)
	tui.tvStatus.SetColor(color)

	tui.tvBackend.SetCurrentValue(snapshot.Backend)
	tui.tvLatency.SetCurrentValue(snapshot.Latency)
	tui.tvReduction.SetCurrentValue(formatReduction(snapshot.Reduction))
	tui.tvError.SetCurrentValue(snapshot.Error)

	if snapshot.SessionID == "" {
		tui.tvSession.SetCurrentValue("-")
	} else {
		tui.tvSession.SetCurrentValue(snapshot.SessionID)
	}

	tui.statusMeterMicGain.SetCurrentValue(snapshot.Preferences.MicGain)
	tui.statusMeterVolume.SetCurrentValue(snapshot.Preferences.OutputVolume)

	tui.toggleEcho.SetEnabled(snapshot.Preferences.EchoCancel)
	tui.toggleNoise.SetEnabled(snapshot.Preferences.NoiseSuppress)
	tui.toggleAutoGain.SetEnabled(snapshot.Preferences.AutoGain)

	tui.mu.Lock()
	newSession := snapshot.SessionID != "" && snapshot.SessionID != tui.lastSessionID
	tui.lastSessionID = snapshot.SessionID
	tui.mu.Unlock()

	if newSession {
		tui.levelMeter.Reset()
	}

	tui.levelMeter.SetActive(snapshot.Status == model.StatusActive)
	tui.levelMeter.SetLevel(snapshot.Level)
}

func (tui *Tui) SetDuration(duration float64) {
	tui.tvDuration.SetCurrentValue(util.FormatDuration(duration))
}

func (tui *Tui) IncrementErrorCount() {
	tui.mu.Lock()
	tui.errorCount++
	count := tui.errorCount
	tui.mu.Unlock()

	tui.tvErrorCount.SetCurrentValue(fmt.Sprintf("%d", count))
	tui.tvErrorCount.SetColor(theme.Red)
}

//
// logging
//

func (tui *Tui) WriteLevelLog(level slog.Level, message string) {
	color := "-"

	if level == slog.LevelWarn {
		color = "#" + theme.YellowRGB
	} else if level == slog.LevelError {
		color = "#" + theme.RedRGB + "::b"
	} else if level <= slog.LevelDebug {
		color = "#" + theme.GrayRGB
	}

	tui.tvLogs.Write([]byte(fmt.Sprintf("[%s][%s[] [%s[] %s[-:-:-]\n", color, time.Now().Format("2006-01-02 15:04:05"), level.String(), cview.Escape(message))))
}
