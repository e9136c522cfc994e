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
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LevelLogWriter is the part of a UI that shows log lines.
type LevelLogWriter interface {
	WriteLevelLog(level slog.Level, message string)
}

type UiLogHandler struct {
	level         slog.Level
	ui            LevelLogWriter
	errorCallback func(string)
	attrs         []slog.Attr
	group         string
}

func NewUiLogHandler(out LevelLogWriter, level slog.Level, errorCallback func(string)) *UiLogHandler {
	h := &UiLogHandler{
		level:         level,
		ui:            out,
		errorCallback: errorCallback,
	}

	return h
}

func (h *UiLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var message strings.Builder
	message.WriteString(r.Message)

	for _, attr := range h.attrs {
		h.writeAttr(&message, attr)
	}

	r.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&message, attr)
		return true
	})

	h.ui.WriteLevelLog(r.Level, message.String())

	if r.Level >= slog.LevelError && h.errorCallback != nil {
		h.errorCallback(r.Message)
	}

	return nil
}

func (h *UiLogHandler) writeAttr(message *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}

	fmt.Fprintf(message, " %s=%v", key, attr.Value.Resolve())
}

func (h *UiLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *UiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *UiLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
