package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/store"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/transcribe"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/validate"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/wav"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe a recording and store its metadata",
	Long: `Transcribe a WAV recording with the configured whisper binary,
write plain-text and markdown transcripts, and save recording metadata
through the store script.

On success two lines are printed for the parent process:
  TRANSCRIPT_SAVED:<markdown-path>
  TRANSCRIPT_TXT:<text-path>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep := report.New(os.Stderr)
		audioFile := args[0]

		if err := validate.AudioFile(audioFile, cfg.Output.AudioDir); err != nil {
			rep.Notify(report.Error, "transcribe.validation", report.KindOf(err), err.Error(), err)
			var verr *validate.Error
			if errors.As(err, &verr) {
				fmt.Printf("ERROR:ValidationError:%s\n", verr.Error())
			}
			os.Exit(1)
		}

		t, err := transcribe.New(cfg.Transcribe, cfg.Output.TranscriptDir, rep)
		if err != nil {
			rep.Fault("transcribe.init", err, true)
			return err
		}

		result, err := t.Transcribe(cmd.Context(), audioFile, cfg.Output.AudioDir)
		if err != nil {
			rep.Fault("transcribe", err, true)
			return err
		}

		duration, err := wav.DurationSeconds(audioFile)
		if err != nil {
			rep.Notify(report.Warning, "transcribe.duration", report.KindOf(err),
				fmt.Sprintf("could not read audio duration: %v", err), err)
			duration = 0
		}

		rec := &store.Recording{
			ID:            store.NewRecordingID(),
			Timestamp:     time.Now().Format(time.RFC3339),
			Duration:      duration,
			AudioFile:     audioFile,
			TranscriptTxt: result.TxtPath,
			TranscriptMd:  result.MdPath,
			FirstLine:     transcribe.FirstLine(result.Transcript),
			Metadata: store.Metadata{
				Model:    cfg.Transcribe.ModelName,
				Language: cfg.Transcribe.Language,
			},
		}
		store.NewClient(cfg.Store, rep).Save(cmd.Context(), rec)

		fmt.Printf("TRANSCRIPT_SAVED:%s\n", result.MdPath)
		fmt.Printf("TRANSCRIPT_TXT:%s\n", result.TxtPath)
		return nil
	},
}
