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
	"math"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	mprisBusName     = "org.mpris.MediaPlayer2.fox_ambient"
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisTrackID     = dbus.ObjectPath("/cc/foxhollow/ambient/live")
)

// Mpris exposes fox-ambient as a media player on the session bus so desktop
// media keys and applets can start, stop and change its volume.
type Mpris struct {
	conn  *dbus.Conn
	props *prop.Properties

	mu   sync.Mutex
	once sync.Once
}

// mprisRoot serves org.mpris.MediaPlayer2.
type mprisRoot struct{}

func (mprisRoot) Raise() *dbus.Error { return nil }
func (mprisRoot) Quit() *dbus.Error  { return nil }

// mprisPlayer serves org.mpris.MediaPlayer2.Player.
type mprisPlayer struct {
	actions Actions
}

func (p *mprisPlayer) Play() *dbus.Error {
	p.actions.Play()
	return nil
}

func (p *mprisPlayer) Pause() *dbus.Error {
	p.actions.Pause()
	return nil
}

func (p *mprisPlayer) PlayPause() *dbus.Error {
	p.actions.Toggle()
	return nil
}

func (p *mprisPlayer) Stop() *dbus.Error {
	p.actions.Stop()
	return nil
}

func (p *mprisPlayer) Next() *dbus.Error {
	p.actions.VolumeUp()
	return nil
}

func (p *mprisPlayer) Previous() *dbus.Error {
	p.actions.VolumeDown()
	return nil
}

func (p *mprisPlayer) Seek(offset int64) *dbus.Error {
	return nil
}

func (p *mprisPlayer) SetPosition(track dbus.ObjectPath, position int64) *dbus.Error {
	return nil
}

func (p *mprisPlayer) OpenUri(uri string) *dbus.Error {
	return dbus.MakeFailedError(fmt.Errorf("opening %s is not supported", uri))
}

func volumeToPercent(volume float64) int {
	return int(math.Round(math.Max(0, math.Min(1, volume)) * 100))
}

func NewMpris(actions Actions) (*Mpris, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}

	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s is already taken", mprisBusName)
	}

	if err := conn.Export(mprisRoot{}, mprisPath, mprisRootIface); err != nil {
		conn.Close()
		return nil, err
	}

	player := &mprisPlayer{actions: actions}
	if err := conn.Export(player, mprisPath, mprisPlayerIface); err != nil {
		conn.Close()
		return nil, err
	}

	props, err := prop.Export(conn, mprisPath, prop.Map{
		mprisRootIface: {
			"Identity":            {Value: "Fox Ambient", Emit: prop.EmitConst},
			"CanQuit":             {Value: false, Emit: prop.EmitConst},
			"CanRaise":            {Value: false, Emit: prop.EmitConst},
			"HasTrackList":        {Value: false, Emit: prop.EmitConst},
			"SupportedUriSchemes": {Value: []string{}, Emit: prop.EmitConst},
			"SupportedMimeTypes":  {Value: []string{}, Emit: prop.EmitConst},
		},
		mprisPlayerIface: {
			"PlaybackStatus": {Value: "Stopped", Emit: prop.EmitTrue},
			"LoopStatus":     {Value: "None", Emit: prop.EmitConst},
			"Rate":           {Value: 1.0, Emit: prop.EmitConst},
			"Shuffle":        {Value: false, Emit: prop.EmitConst},
			"Metadata":       {Value: metadata("Fox Ambient", ""), Emit: prop.EmitTrue},
			"Volume": {
				Value:    0.0,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: func(change *prop.Change) *dbus.Error {
					volume, ok := change.Value.(float64)
					if !ok {
						return dbus.MakeFailedError(fmt.Errorf("volume must be a double"))
					}
					// prop holds its lock while this runs and the
					// controller echoes the volume back through SetVolume
					go actions.SetVolume(volumeToPercent(volume))
					return nil
				},
			},
			"Position":      {Value: int64(0), Emit: prop.EmitFalse},
			"MinimumRate":   {Value: 1.0, Emit: prop.EmitConst},
			"MaximumRate":   {Value: 1.0, Emit: prop.EmitConst},
			"CanGoNext":     {Value: true, Emit: prop.EmitConst},
			"CanGoPrevious": {Value: true, Emit: prop.EmitConst},
			"CanPlay":       {Value: true, Emit: prop.EmitConst},
			"CanPause":      {Value: true, Emit: prop.EmitConst},
			"CanSeek":       {Value: false, Emit: prop.EmitConst},
			"CanControl":    {Value: true, Emit: prop.EmitConst},
		},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Registered MPRIS player " + mprisBusName)

	return &Mpris{conn: conn, props: props}, nil
}

func metadata(title string, description string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(mprisTrackID),
		"xesam:title":   dbus.MakeVariant(title),
		"xesam:album":   dbus.MakeVariant(description),
		"xesam:artist":  dbus.MakeVariant([]string{"Fox Ambient"}),
	}
}

func playbackStatus(playing bool) string {
	if playing {
		return "Playing"
	}
	return "Paused"
}

func (m *Mpris) SetMetadata(title string, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.props.SetMust(mprisPlayerIface, "Metadata", metadata(title, description))
}

func (m *Mpris) SetPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.props.SetMust(mprisPlayerIface, "PlaybackStatus", playbackStatus(playing))
}

func (m *Mpris) SetVolume(percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.props.SetMust(mprisPlayerIface, "Volume", float64(percent)/100)
}

func (m *Mpris) Close() error {
	var err error

	m.once.Do(func() {
		m.conn.ReleaseName(mprisBusName)
		err = m.conn.Close()
	})

	return err
}
