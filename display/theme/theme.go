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
package theme

import (
	"github.com/gdamore/tcell/v2"
)

const (
	Blue         = tcell.ColorBlue
	BlueRGB      = "0000FF"
	Green        = tcell.Color71
	GreenRGB     = "5FAF5F"
	Pink         = tcell.Color131
	PinkRGB      = "AF5F5F"
	Red          = tcell.Color124
	RedRGB       = "AF0000"
	SoftGreen    = tcell.Color72
	SoftGreenRGB = "5FAF87"
	Yellow       = tcell.Color142
	YellowRGB    = "AFAF00"
	Gray         = tcell.ColorGray
	GrayRGB      = "808080"
)

const (
	RuneClock  = rune(9201) // ⏱
	RunePause  = rune(9208) // ⏸
	RunePlay   = rune(9205) // ⏵
	RuneStop   = rune(9209) // ⏹
	RuneFailed = rune(9932) // ⛌
	RuneCheck  = rune(10004)
	RuneCross  = rune(10008)
)

// Palette holds the colours that change between the light and dark look.
// Level colours stay the same in both.
type Palette struct {
	Name       string
	Background tcell.Color
	Foreground tcell.Color
	Border     tcell.Color
	MeterEmpty tcell.Color
	Dimmed     tcell.Color
}

var (
	Dark = Palette{
		Name:       "dark",
		Background: tcell.ColorBlack,
		Foreground: tcell.ColorWhite,
		Border:     tcell.Color243,
		MeterEmpty: tcell.Color242,
		Dimmed:     tcell.Color237,
	}

	Light = Palette{
		Name:       "light",
		Background: tcell.Color255,
		Foreground: tcell.Color235,
		Border:     tcell.Color246,
		MeterEmpty: tcell.Color250,
		Dimmed:     tcell.Color252,
	}
)

// Next returns the other palette.
func (p Palette) Next() Palette {
	if p.Name == Dark.Name {
		return Light
	}
	return Dark
}
