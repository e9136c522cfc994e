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
	"errors"
	"fmt"

	"fox-ambient/model"
)

var (
	ErrPermissionDenied    = errors.New("permission to use the microphone was denied")
	ErrDeviceNotFound      = errors.New("no capture device was found")
	ErrDeviceBusy          = errors.New("the capture device is in use")
	ErrUnknownCapture      = errors.New("capture failed")
	ErrEngineUnavailable   = errors.New("audio engine unavailable")
	ErrPlatformUnsupported = errors.New("audio capture is not supported on this platform")
)

// Error carries the kind of an audio failure next to the backend cause.
// errors.Is matches both the kind sentinel and the wrapped cause.
type Error struct {
	Op      string
	Backend string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Backend + " " + e.Op + ": " + e.Kind.Error()
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Backend, e.Op, e.Kind.Error(), e.Err.Error())
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, backend string, kind error, err error) *Error {
	return &Error{Op: op, Backend: backend, Kind: kind, Err: err}
}

// KindOf returns the kind sentinel of err, or nil when err carries none.
func KindOf(err error) error {
	var audioErr *Error
	if errors.As(err, &audioErr) {
		return audioErr.Kind
	}

	for _, kind := range []error{ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy, ErrUnknownCapture, ErrEngineUnavailable, ErrPlatformUnsupported} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

// KindName is the short label used for metrics and logs.
func KindName(kind error) string {
	switch kind {
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrDeviceNotFound:
		return "device_not_found"
	case ErrDeviceBusy:
		return "device_busy"
	case ErrUnknownCapture:
		return "unknown_capture"
	case ErrEngineUnavailable:
		return "engine_unavailable"
	case ErrPlatformUnsupported:
		return "platform_unsupported"
	}
	return "other"
}

func isCaptureKind(kind error) bool {
	return kind == ErrPermissionDenied || kind == ErrDeviceNotFound || kind == ErrDeviceBusy || kind == ErrUnknownCapture
}

// AcquireCapture asks backend for a capture device. On failure the returned
// error is always an *Error whose kind is one of ErrPermissionDenied,
// ErrDeviceNotFound, ErrDeviceBusy or ErrUnknownCapture.
func AcquireCapture(ctx context.Context, backend Backend, constraints model.CaptureConstraints) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
	}

	capture, err := backend.Acquire(ctx, constraints)
	if err == nil {
		return capture, nil
	}

	if kind := KindOf(err); isCaptureKind(kind) {
		var audioErr *Error
		if errors.As(err, &audioErr) {
			return nil, audioErr
		}
		return nil, newError("acquire", backend.Name(), kind, err)
	}

	return nil, newError("acquire", backend.Name(), ErrUnknownCapture, err)
}
