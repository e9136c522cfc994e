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
	"slices"
	"sync"
	"time"

	"code.rocketnine.space/tslocum/cview"
	"github.com/gdamore/tcell/v2"
)

// LevelMeter draws the input level as a vertical bar of steps, with a
// held peak and the highest level seen since the last reset.
type LevelMeter struct {
	*cview.Box

	// Rune to use when rendering the empty area of the level meter.
	emptyRune rune

	// Rune to use when rendering the filled area of the level meter.
	filledRune rune

	label  string
	active bool

	level          int
	peakLevel      int
	peakHoldTimeMs int
	lastPeakTime   int64
	maxSeen        int

	minLevel int
	maxLevel int

	// steps from the top of the meter to the bottom
	steps []int

	inactiveColor tcell.Color

	// lowest level of each colour band
	colorMap  map[int]tcell.Color
	colorKeys []int

	sync.RWMutex
}

func NewLevelMeter(steps []int, colorMap map[int]tcell.Color) *LevelMeter {
	keys := make([]int, 0, len(colorMap))
	for k := range colorMap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)

	p := &LevelMeter{
		Box:            cview.NewBox(),
		emptyRune:      rune(9617),
		filledRune:     rune(9607),
		minLevel:       slices.Min(steps),
		maxLevel:       slices.Max(steps),
		peakHoldTimeMs: 750,
		inactiveColor:  tcell.Color237,
		steps:          steps,
		colorMap:       colorMap,
		colorKeys:      keys,
	}
	p.SetBackgroundColor(cview.Styles.PrimitiveBackgroundColor)
	p.Reset()

	return p
}

func (p *LevelMeter) SetLabel(label string) {
	p.Lock()
	defer p.Unlock()

	p.label = label
}

func (p *LevelMeter) SetInactiveColor(color tcell.Color) {
	p.Lock()
	defer p.Unlock()

	p.inactiveColor = color
}

// SetActive dims the meter while no audio is flowing.
func (p *LevelMeter) SetActive(active bool) {
	p.Lock()
	defer p.Unlock()

	p.active = active
}

// Reset drops the level, the held peak and the max seen.
func (p *LevelMeter) Reset() {
	p.Lock()
	defer p.Unlock()

	p.level = 0
	p.peakLevel = 0
	p.maxSeen = 0
	p.lastPeakTime = 0
}

func (p *LevelMeter) SetLevel(level int) {
	p.Lock()
	defer p.Unlock()

	p.level = max(0, min(level, p.maxLevel))

	if p.level > p.maxSeen {
		p.maxSeen = p.level
	}

	now := time.Now().UnixMilli()
	if p.level > p.peakLevel || (now-p.lastPeakTime) > int64(p.peakHoldTimeMs) {
		p.peakLevel = p.level
		p.lastPeakTime = now
	}
}

func (p *LevelMeter) GetLevel() int {
	p.RLock()
	defer p.RUnlock()

	return p.level
}

func (p *LevelMeter) GetPeakLevel() int {
	p.RLock()
	defer p.RUnlock()

	return p.peakLevel
}

func (p *LevelMeter) GetMaxSeen() int {
	p.RLock()
	defer p.RUnlock()

	return p.maxSeen
}

func (p *LevelMeter) levelColor(level int) tcell.Color {
	for _, key := range p.colorKeys {
		if level >= key {
			return p.colorMap[key]
		}
	}

	return tcell.ColorPurple
}

func (p *LevelMeter) Draw(screen tcell.Screen) {
	if !p.GetVisible() {
		return
	}

	p.Box.Draw(screen)

	p.Lock()
	defer p.Unlock()

	x, y, width, _ := p.GetInnerRect()
	background := p.GetBackgroundColor()
	foundPeak := false

	p.drawText(screen, x, y, width, p.label, tcell.StyleDefault.Bold(true).Background(background))
	y++

	for step, stepLevel := range p.steps {
		filled := false
		style := tcell.StyleDefault.Foreground(p.levelColor(stepLevel)).Background(background)

		if !foundPeak && p.peakLevel >= stepLevel && p.peakLevel > p.minLevel {
			foundPeak = true
			filled = true
			style = style.Bold(true)
		} else if p.level >= stepLevel {
			filled = true
		}

		if !p.active {
			style = style.Foreground(p.inactiveColor)
		}

		char := p.emptyRune
		if filled {
			char = p.filledRune
		} else {
			style = style.Dim(true)
		}

		for w := 0; w < width; w++ {
			screen.SetContent(x+w, y+step, char, nil, style)
		}
	}

	y += len(p.steps)

	maxStyle := tcell.StyleDefault.Bold(true).Foreground(p.levelColor(p.maxSeen)).Background(background)
	p.drawText(screen, x, y, width, fmt.Sprintf("%d", p.maxSeen), maxStyle)
}

// drawText right aligns value in a row of the given width.
func (p *LevelMeter) drawText(screen tcell.Screen, x, y, width int, value string, style tcell.Style) {
	runes := []rune(fmt.Sprintf(fmt.Sprintf("%%%dv", width), value))
	for w := 0; w < width && w < len(runes); w++ {
		screen.SetContent(x+w, y, runes[w], nil, style)
	}
}
