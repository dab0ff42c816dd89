package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
)

var (
	cfg          *config.Config
	cfgFile      string
	logFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "braindump",
	Short: "Local voice memo recorder and transcriber",
	Long: `BrainDump records microphone audio to WAV files on command and
transcribes them with a local whisper binary.

The daemon subcommand speaks a line-delimited protocol over stdin/stdout
and is meant to be spawned by a parent process; the transcribe subcommand
runs the transcription pipeline for a single recording.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel, logFile)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, optional)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=warn, 1=info, 2=debug")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures the process-wide slog handler. The daemon's
// stdout carries the wire protocol, so logs always go to stderr or a file.
func setupLogging(level int, logFile string) {
	var slogLevel slog.Level
	switch level {
	case 0:
		slogLevel = slog.LevelWarn
	case 1:
		slogLevel = slog.LevelInfo
	default:
		slogLevel = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}
