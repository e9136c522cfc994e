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
package nowplaying

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hugolgst/rich-go/client"
)

// Discord shows the session as rich presence in a running Discord client.
type Discord struct {
	mu          sync.Mutex
	title       string
	description string
	playing     bool
	volume      int
	since       time.Time
	closed      bool
}

func NewDiscord(appID string) (*Discord, error) {
	if err := client.Login(appID); err != nil {
		return nil, err
	}

	slog.Info("Connected to Discord rich presence")

	return &Discord{title: "Fox Ambient"}, nil
}

func (d *Discord) SetMetadata(title string, description string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.title = title
	d.description = description
	d.publishLocked()
}

func (d *Discord) SetPlaying(playing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if playing && !d.playing {
		d.since = time.Now()
	}
	d.playing = playing
	d.publishLocked()
}

func (d *Discord) SetVolume(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.volume == percent {
		return
	}
	d.volume = percent
	d.publishLocked()
}

func (d *Discord) publishLocked() {
	if d.closed {
		return
	}

	activity := client.Activity{
		Details:    d.title,
		State:      presenceState(d.playing, d.volume),
		LargeText:  d.description,
		LargeImage: "fox",
	}

	if d.playing {
		since := d.since
		activity.Timestamps = &client.Timestamps{Start: &since}
	}

	if err := client.SetActivity(activity); err != nil {
		slog.Debug("Discord presence update failed: " + err.Error())
	}
}

func presenceState(playing bool, volume int) string {
	if !playing {
		return "Paused"
	}
	return fmt.Sprintf("Listening at %d%% volume", volume)
}

func (d *Discord) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		client.Logout()
	}

	return nil
}
