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
package custom

import (
	"fmt"

	"code.rocketnine.space/tslocum/cview"
	"github.com/gdamore/tcell/v2"
)

// StatusMeter is a labelled progress bar with the numeric value beside it.
type StatusMeter struct {
	unit       string
	value      int
	grid       *cview.Grid
	headerView *cview.TextView
	meterView  *cview.ProgressBar
	valueView  *cview.TextView
}

func NewStatusMeter(headerWidth int, name string, initialValue int, unit string) *StatusMeter {
	meter := StatusMeter{
		grid: cview.NewGrid(),
		unit: unit,
	}

	meter.grid.SetPadding(0, 0, 0, 0)
	meter.grid.SetColumns(headerWidth, -1, 7)
	meter.grid.SetRows(1)

	meter.headerView = cview.NewTextView()
	meter.headerView.SetTextAlign(cview.AlignRight)
	meter.SetHeader(name)
	meter.grid.AddItem(meter.headerView, 0, 0, 1, 1, 0, 0, false)

	meter.meterView = cview.NewProgressBar()
	meter.meterView.SetFilledRune(rune(9607))
	meter.meterView.SetEmptyRune(rune(9617))
	meter.meterView.SetEmptyColor(tcell.Color242)
	meter.grid.AddItem(meter.meterView, 0, 1, 1, 1, 0, 0, false)

	meter.valueView = cview.NewTextView()
	meter.valueView.SetPadding(0, 0, 1, 0)
	meter.grid.AddItem(meter.valueView, 0, 2, 1, 1, 0, 0, false)

	meter.SetCurrentValue(initialValue)

	return &meter
}

func (meter *StatusMeter) SetHeader(value string) {
	meter.headerView.Clear()
	meter.headerView.Write([]byte(fmt.Sprintf("%s: ", value)))
}

func (meter *StatusMeter) SetCurrentValue(value int) {
	meter.value = value
	meter.meterView.SetProgress(value)
	meter.valueView.Clear()
	meter.valueView.Write([]byte(fmt.Sprintf("%d %s", value, meter.unit)))
}

func (meter *StatusMeter) GetCurrentValue() int {
	return meter.value
}

func (meter *StatusMeter) SetColor(color tcell.Color) {
	meter.meterView.SetFilledColor(color)
}

func (meter *StatusMeter) SetEmptyColor(color tcell.Color) {
	meter.meterView.SetEmptyColor(color)
}

func (meter *StatusMeter) SetBaseColors(background tcell.Color, foreground tcell.Color) {
	meter.grid.SetBackgroundColor(background)
	meter.headerView.SetBackgroundColor(background)
	meter.headerView.SetTextColor(foreground)
	meter.meterView.SetBackgroundColor(background)
	meter.valueView.SetBackgroundColor(background)
	meter.valueView.SetTextColor(foreground)
}

func (meter *StatusMeter) GetGrid() *cview.Grid {
	return meter.grid
}
