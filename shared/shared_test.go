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
package shared

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	level   slog.Level
	message string
}

type fakeUi struct {
	mu    sync.Mutex
	lines []logLine
}

func (f *fakeUi) WriteLevelLog(level slog.Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lines = append(f.lines, logLine{level, message})
}

func TestUiLogHandlerFiltersAndFormats(t *testing.T) {
	ui := &fakeUi{}
	errors := 0
	logger := slog.New(NewUiLogHandler(ui, slog.LevelInfo, func(string) { errors++ }))

	logger.Debug("hidden")
	logger.Info("Session started", "session", "abc")
	logger.With("backend", "jack").Error("Start failed")

	require.Len(t, ui.lines, 2)
	assert.Equal(t, "Session started session=abc", ui.lines[0].message)
	assert.Equal(t, slog.LevelError, ui.lines[1].level)
	assert.Equal(t, "Start failed backend=jack", ui.lines[1].message)
	assert.Equal(t, 1, errors)
}

func TestUiLogHandlerGroups(t *testing.T) {
	ui := &fakeUi{}
	logger := slog.New(NewUiLogHandler(ui, slog.LevelDebug, nil))

	logger.WithGroup("audio").Warn("xrun", "count", 3)

	require.Len(t, ui.lines, 1)
	assert.Equal(t, "xrun audio.count=3", ui.lines[0].message)
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	debug := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	warn := slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	handler := NewMultiHandler(debug, warn)
	assert.True(t, handler.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(handler).With("component", "test")
	logger.Debug("quiet")
	logger.Warn("loud")

	assert.Contains(t, debugBuf.String(), "quiet")
	assert.Contains(t, debugBuf.String(), "loud")
	assert.NotContains(t, warnBuf.String(), "quiet")
	assert.Contains(t, warnBuf.String(), "loud")
	assert.Contains(t, warnBuf.String(), "component=test")
}

func TestFileHandlerWritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fox-ambient.log")

	handler, closer, err := NewFileHandler(path, slog.LevelInfo)
	require.NoError(t, err)

	slog.New(handler).Info("written to disk", "level", 42)
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "written to disk")
	assert.Contains(t, string(contents), "level=42")
}

func TestCatchSigint(t *testing.T) {
	caught := make(chan struct{}, 1)
	stop := CatchSigint(func() { caught <- struct{}{} })
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-caught:
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not delivered")
	}
}
