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
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"fox-ambient/model"
)

const bytesPerSample = 4

// captureStream is the hand-off between a device callback pushing samples
// and an engine period pulling them. Backlog past the target latency is
// dropped so the loop never drifts behind the room.
type captureStream struct {
	backend     string
	constraints model.CaptureConstraints
	conditioner *Conditioner

	mu      sync.Mutex
	buffer  *ringbuffer.RingBuffer
	maxLag  int // bytes
	scratch []byte
	dropped atomic.Uint64

	released  atomic.Bool
	releaseFn func() error
	once      sync.Once
	err       error
}

func newCaptureStream(backend string, constraints model.CaptureConstraints, releaseFn func() error) *captureStream {
	// one second of audio is plenty of headroom for any period size
	capacity := constraints.SampleRate * bytesPerSample
	maxLag := max(constraints.TargetLatencyFrames()*4, constraints.SampleRate/10) * bytesPerSample

	return &captureStream{
		backend:     backend,
		constraints: constraints,
		conditioner: NewConditioner(constraints),
		buffer:      ringbuffer.New(capacity),
		maxLag:      maxLag,
		releaseFn:   releaseFn,
	}
}

func (s *captureStream) Constraints() model.CaptureConstraints {
	return s.constraints
}

// push conditions frame in place and queues it.
func (s *captureStream) push(frame []float32) {
	if s.released.Load() || len(frame) == 0 {
		return
	}

	s.conditioner.Process(frame)

	s.mu.Lock()
	defer s.mu.Unlock()

	need := len(frame) * bytesPerSample
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	data := s.scratch[:need]
	for i, sample := range frame {
		binary.LittleEndian.PutUint32(data[i*bytesPerSample:], math.Float32bits(sample))
	}

	if overflow := s.buffer.Length() + need - s.maxLag; overflow > 0 {
		s.discard(overflow)
	}

	if _, err := s.buffer.Write(data); err != nil {
		slog.Debug("capture buffer write failed: " + err.Error())
	}
}

// discard drops the oldest n bytes, rounded up to whole samples. Caller holds mu.
func (s *captureStream) discard(n int) {
	if rem := n % bytesPerSample; rem != 0 {
		n += bytesPerSample - rem
	}
	n = min(n, s.buffer.Length())

	drop := make([]byte, n)
	read, _ := s.buffer.Read(drop)
	s.dropped.Add(uint64(read / bytesPerSample))
}

func (s *captureStream) Read(dst []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := s.buffer.Length() / bytesPerSample
	n := min(available, len(dst))
	if n == 0 {
		return 0
	}

	data := make([]byte, n*bytesPerSample)
	read, _ := s.buffer.Read(data)
	n = read / bytesPerSample

	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*bytesPerSample:]))
	}

	return n
}

func (s *captureStream) FeedFarEnd(frame []float32) {
	s.conditioner.FeedFarEnd(frame)
}

// Dropped returns how many samples were thrown away to hold latency down.
func (s *captureStream) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *captureStream) Release() error {
	s.once.Do(func() {
		s.released.Store(true)

		if s.releaseFn != nil {
			s.err = s.releaseFn()
		}

		s.mu.Lock()
		s.buffer.Reset()
		s.mu.Unlock()

		slog.Debug("Released " + s.backend + " capture device")
	})

	return s.err
}

func (s *captureStream) Released() bool {
	return s.released.Load()
}
