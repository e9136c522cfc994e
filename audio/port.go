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
	"fmt"
	"log/slog"

	"github.com/hairlesshobo/go-jack"
)

type PortDirection int8

const (
	In PortDirection = iota
	Out
)

// Port pairs one of our JACK ports with the system port it is wired to.
type Port struct {
	portDirection PortDirection
	myName        string
	connected     bool
	jackName      string
	jackPort      *jack.Port
}

func newPort(direction PortDirection, myName string, jackName string) *Port {
	return &Port{
		portDirection: direction,
		myName:        myName,
		jackName:      jackName,
		connected:     false,
	}
}

func (port *Port) register(client *jack.Client) error {
	jackDirection := uint64(jack.PortIsInput)
	if port.portDirection == Out {
		jackDirection = jack.PortIsOutput
	}

	port.jackPort = client.PortRegister(port.myName, jack.DEFAULT_AUDIO_TYPE, jackDirection, 0)
	if port.jackPort == nil {
		return fmt.Errorf("failed to register port %s", port.myName)
	}

	slog.Debug("Registered port " + port.myName)
	return nil
}

// endpoints returns the source and destination names in JACK's connect order.
func (port *Port) endpoints(clientName string) (string, string) {
	ours := fmt.Sprintf("%s:%s", clientName, port.myName)

	if port.portDirection == In {
		return port.jackName, ours
	}
	return ours, port.jackName
}

func (port *Port) connect(client *jack.Client, clientName string) error {
	source, destination := port.endpoints(clientName)

	if code := client.Connect(source, destination); code != 0 {
		return fmt.Errorf("connect %s to %s: %s", source, destination, jack.StrError(code))
	}

	slog.Debug(fmt.Sprintf("Connected port %s to port %s", source, destination))
	port.connected = true
	return nil
}

func (port *Port) buffer(nframes uint32) []jack.AudioSample {
	return port.jackPort.GetBuffer(nframes)
}
