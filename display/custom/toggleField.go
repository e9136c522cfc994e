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

// ToggleField shows one on/off option with the key that flips it.
type ToggleField struct {
	grid     *cview.Grid
	keyView  *cview.TextView
	nameView *cview.TextView
	flagView *cview.TextView

	enabled  bool
	onRune   rune
	offRune  rune
	onColor  tcell.Color
	offColor tcell.Color
}

func NewToggleField(keyWidth int, key rune, name string, onRune rune, offRune rune) *ToggleField {
	field := ToggleField{
		grid:     cview.NewGrid(),
		onRune:   onRune,
		offRune:  offRune,
		onColor:  tcell.ColorGreen,
		offColor: tcell.ColorGray,
	}

	field.grid.SetPadding(0, 0, 0, 0)
	field.grid.SetColumns(keyWidth, 3, -1)
	field.grid.SetRows(1)

	field.keyView = cview.NewTextView()
	field.keyView.SetTextAlign(cview.AlignRight)
	field.keyView.Write([]byte(fmt.Sprintf("[%c] ", key)))
	field.grid.AddItem(field.keyView, 0, 0, 1, 1, 0, 0, false)

	field.flagView = cview.NewTextView()
	field.grid.AddItem(field.flagView, 0, 1, 1, 1, 0, 0, false)

	field.nameView = cview.NewTextView()
	field.SetName(name)
	field.grid.AddItem(field.nameView, 0, 2, 1, 1, 0, 0, false)

	field.SetEnabled(false)

	return &field
}

func (field *ToggleField) SetColors(on tcell.Color, off tcell.Color) {
	field.onColor = on
	field.offColor = off
	field.SetEnabled(field.enabled)
}

func (field *ToggleField) SetName(value string) {
	field.nameView.Clear()
	field.nameView.Write([]byte(value))
}

func (field *ToggleField) SetEnabled(enabled bool) {
	field.enabled = enabled
	field.flagView.Clear()

	if enabled {
		field.flagView.SetTextColor(field.onColor)
		field.flagView.Write([]byte(string(field.onRune)))
	} else {
		field.flagView.SetTextColor(field.offColor)
		field.flagView.Write([]byte(string(field.offRune)))
	}
}

func (field *ToggleField) IsEnabled() bool {
	return field.enabled
}

func (field *ToggleField) SetBaseColors(background tcell.Color, foreground tcell.Color) {
	field.grid.SetBackgroundColor(background)
	field.keyView.SetBackgroundColor(background)
	field.keyView.SetTextColor(foreground)
	field.flagView.SetBackgroundColor(background)
	field.nameView.SetBackgroundColor(background)
	field.nameView.SetTextColor(foreground)
}

func (field *ToggleField) GetGrid() *cview.Grid {
	return field.grid
}
