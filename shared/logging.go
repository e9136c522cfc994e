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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"fox-ambient/util"
)

var (
	stockStderr *os.File
	stockStdout *os.File
)

//------------------------------------------------------------------
// public functions
//------------------------------------------------------------------

// HijackLogging routes anything written to stdout or stderr into slog so
// stray library output cannot tear the terminal UI.
func HijackLogging() {
	if stockStdout != nil {
		return
	}

	stockStdout = os.Stdout
	stockStderr = os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(stockStderr, err)
		return
	}
	go logProcessor(stdoutR, slog.LevelInfo)

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(stockStderr, err)
		return
	}
	go logProcessor(stderrR, slog.LevelError)

	os.Stdout = stdoutW
	os.Stderr = stderrW
}

// RestoreLogging puts the original stdout and stderr back.
func RestoreLogging() {
	if stockStdout == nil {
		return
	}

	os.Stdout = stockStdout
	os.Stderr = stockStderr
	stockStdout = nil
	stockStderr = nil
}

// NewFileHandler writes text records to a size-rotated log file.
func NewFileHandler(path string, level slog.Level) (slog.Handler, io.Closer, error) {
	resolved, err := util.ResolveHomeDirPath(path)
	if err != nil {
		return nil, nil, err
	}

	writer := &lumberjack.Logger{
		Filename:   resolved,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})

	return handler, writer, nil
}

// MultiHandler hands every record to each handler that accepts its level.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error

	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}

	return errors.Join(errs...)
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return NewMultiHandler(handlers...)
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return NewMultiHandler(handlers...)
}

//------------------------------------------------------------------
// private functions
//------------------------------------------------------------------

func logProcessor(pipe *os.File, level slog.Level) {
	scanner := bufio.NewScanner(pipe)

	for scanner.Scan() {
		slog.Log(context.Background(), level, scanner.Text())
	}
}
