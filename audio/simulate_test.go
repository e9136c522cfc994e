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
package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fox-ambient/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSimulatedDeviceIsExclusive(t *testing.T) {
	backend := NewSimulatedBackend(nil)
	constraints := model.ConstraintsFor(model.DefaultPreferences())

	first, err := AcquireCapture(context.Background(), backend, constraints)
	require.NoError(t, err)

	_, err = AcquireCapture(context.Background(), backend, constraints)
	assert.ErrorIs(t, err, ErrDeviceBusy)

	require.NoError(t, first.Release())

	second, err := AcquireCapture(context.Background(), backend, constraints)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestSimulatedMissingWavIsDeviceNotFound(t *testing.T) {
	backend := NewSimulatedBackend(&model.SimulationOptions{WavFile: filepath.Join(t.TempDir(), "missing.wav")})

	_, err := AcquireCapture(context.Background(), backend, model.ConstraintsFor(model.DefaultPreferences()))
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func writeStereoWav(t *testing.T, path string, sampleRate int, frames int) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*2)
	for i := range frames {
		data[i*2] = 16384
		data[i*2+1] = 0
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
}

func TestLoadWavSourceDownmixesAndResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.wav")
	writeStereoWav(t, path, 22050, 2205)

	source, err := loadWavSource(path, 44100)
	require.NoError(t, err)

	assert.InDelta(t, 4410, len(source.samples), 2)
	// left channel at half scale, right silent
	assert.Greater(t, source.samples[100], float32(0.2))
	assert.LessOrEqual(t, source.samples[100], float32(0.5))

	dst := make([]float32, len(source.samples)+10)
	source.fill(dst)
	assert.Equal(t, source.samples[0], dst[len(source.samples)])
}

func TestSimulatedEngineRunsPeriods(t *testing.T) {
	backend := NewSimulatedBackend(&model.SimulationOptions{ToneHz: 440, ToneLevel: 0.5})
	constraints := model.ConstraintsFor(model.Preferences{})

	capture, err := backend.Acquire(context.Background(), constraints)
	require.NoError(t, err)
	defer capture.Release()

	engine, err := backend.NewEngine(context.Background(), EngineOptions{SampleRate: 44100, Latency: model.LatencyInteractive})
	require.NoError(t, err)
	assert.Equal(t, EngineSuspended, engine.State())

	require.NoError(t, engine.Attach(capture, func(in, out []float32) {
		copy(out, in)
	}))
	require.NoError(t, engine.Resume(context.Background()))
	assert.Equal(t, EngineRunning, engine.State())

	sim := engine.(*SimulatedEngine)
	assert.Eventually(t, func() bool {
		return sim.Periods() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, sim.Peak(), float32(0.3))

	require.NoError(t, engine.Close())
	assert.Equal(t, EngineClosed, engine.State())
	assert.Error(t, engine.Resume(context.Background()))
}
