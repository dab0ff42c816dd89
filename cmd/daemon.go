package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/audio"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/daemon"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the recording daemon",
	Long: `Run the recording daemon, reading commands (start, stop, quit) from
stdin and writing protocol events (READY, RECORDING_STARTED,
RECORDING_STOPPED:<path>, ERROR:<kind>) to stdout.

An interrupt or termination signal cleans up like quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep := report.New(os.Stderr)

		capture, err := audio.NewCapture(cfg.Audio, cfg.Output.AudioDir, rep)
		if err != nil {
			// Device or output directory unavailable: the only fatal
			// failure class, everything after READY keeps the loop alive.
			rep.Fault("daemon.init", err, true)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := daemon.New(capture, os.Stdin, os.Stdout, rep)
		return d.Run(ctx)
	},
}
