package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes an audio input device available for capture.
type Device struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Channels int     `json:"channels"`
	Rate     float64 `json:"rate"`
}

// InputDevices lists capture-capable devices. The audio subsystem is
// initialized and terminated around the enumeration, so this is safe to
// call without an open Capture.
func InputDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio subsystem initialization failed: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:    i,
			Name:     info.Name,
			Channels: info.MaxInputChannels,
			Rate:     info.DefaultSampleRate,
		})
	}

	return devices, nil
}
