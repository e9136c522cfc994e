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
package meter

import (
	"math"

	"fox-ambient/dsp"
)

// Level converts unsigned 8-bit time-domain samples centred on 128 into a
// 0..100 display level. The RMS is scaled by 3 so normal speech reaches the
// upper half of the meter.
func Level(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}

	var sum float64
	for _, b := range buf {
		v := (float64(b) - 128) / 128
		sum += v * v
	}

	rms := math.Sqrt(sum / float64(len(buf)))
	level := int(math.Round(rms * 100 * 3))

	if level < 0 {
		return 0
	} else if level > 100 {
		return 100
	}
	return level
}

// SampleLevel reads the analyser's current window and returns its level.
func SampleLevel(analyser *dsp.Analyser) int {
	buf := make([]byte, analyser.FFTSize())
	n := analyser.GetByteTimeDomainData(buf)
	return Level(buf[:n])
}
