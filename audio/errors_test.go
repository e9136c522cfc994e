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
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fox-ambient/model"
)

type failingBackend struct {
	SimulatedBackend
	err error
}

func (backend *failingBackend) Acquire(ctx context.Context, constraints model.CaptureConstraints) (Capture, error) {
	return nil, backend.err
}

func TestAcquireCaptureClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"permission", newError("acquire", "fake", ErrPermissionDenied, nil), ErrPermissionDenied},
		{"not found", ErrDeviceNotFound, ErrDeviceNotFound},
		{"busy wrapped", errors.Join(errors.New("io"), ErrDeviceBusy), ErrDeviceBusy},
		{"engine kind is not a capture kind", ErrEngineUnavailable, ErrUnknownCapture},
		{"opaque", errors.New("boom"), ErrUnknownCapture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &failingBackend{err: tt.err}

			capture, err := AcquireCapture(context.Background(), backend, model.ConstraintsFor(model.DefaultPreferences()))
			require.Nil(t, capture)
			require.Error(t, err)

			var audioErr *Error
			require.ErrorAs(t, err, &audioErr)
			assert.Equal(t, tt.kind, audioErr.Kind)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestAcquireCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AcquireCapture(ctx, NewSimulatedBackend(nil), model.ConstraintsFor(model.DefaultPreferences()))
	assert.ErrorIs(t, err, ErrUnknownCapture)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyMalgo(t *testing.T) {
	assert.Equal(t, ErrPermissionDenied, classifyMalgo(malgo.ErrAccessDenied))
	assert.Equal(t, ErrDeviceNotFound, classifyMalgo(malgo.ErrNoDevice))
	assert.Equal(t, ErrDeviceNotFound, classifyMalgo(malgo.ErrDoesNotExist))
	assert.Equal(t, ErrDeviceBusy, classifyMalgo(malgo.ErrBusy))
	assert.Equal(t, ErrDeviceBusy, classifyMalgo(malgo.ErrAlreadyInUse))
	assert.Equal(t, ErrUnknownCapture, classifyMalgo(malgo.ErrGeneric))
}

func TestKindOfAndName(t *testing.T) {
	err := newError("engine", "fake", ErrEngineUnavailable, errors.New("no device"))

	assert.Equal(t, ErrEngineUnavailable, KindOf(err))
	assert.Equal(t, "engine_unavailable", KindName(KindOf(err)))
	assert.Nil(t, KindOf(errors.New("plain")))
	assert.Equal(t, "other", KindName(nil))
	assert.Contains(t, err.Error(), "no device")
}
