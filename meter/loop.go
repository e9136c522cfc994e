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
	"context"
	"sync"
	"time"

	"fox-ambient/dsp"
)

// DefaultInterval is one refresh of a 60 Hz display.
const DefaultInterval = 16 * time.Millisecond

// Loop samples an analyser on a fixed interval and reports each level. It
// runs until Stop is called or the context it was started with is done.
type Loop struct {
	analyser *dsp.Analyser
	interval time.Duration
	report   func(level int)

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewLoop(analyser *dsp.Analyser, interval time.Duration, report func(level int)) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Loop{
		analyser: analyser,
		interval: interval,
		report:   report,
	}
}

func (loop *Loop) Start(ctx context.Context) {
	ctx, loop.cancel = context.WithCancel(ctx)

	loop.wg.Add(1)
	go loop.processOnInterval(ctx)
}

func (loop *Loop) processOnInterval(ctx context.Context) {
	defer loop.wg.Done()

	t := time.NewTicker(loop.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		level := SampleLevel(loop.analyser)

		// a stop may have landed while sampling
		if ctx.Err() != nil {
			return
		}

		loop.report(level)
	}
}

// Stop cancels the loop and waits until no more reports can happen.
func (loop *Loop) Stop() {
	loop.once.Do(func() {
		if loop.cancel != nil {
			loop.cancel()
		}
		loop.wg.Wait()
	})
}
