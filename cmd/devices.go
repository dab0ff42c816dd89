package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long:  `List capture-capable audio devices as JSON, one object per device.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.InputDevices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if devices == nil {
			devices = []audio.Device{}
		}

		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(devices)
	},
}
