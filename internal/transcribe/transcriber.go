// Package transcribe turns recorded WAV files into plain-text and markdown
// transcripts by shelling out to a local whisper binary. The binary writes
// a sidecar <audio>.txt next to its input; this package reads it, rewrites
// it into the transcript directory and removes the sidecar.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/validate"
)

// timestampFormat is the layout used in transcript filenames.
const timestampFormat = "2006-01-02_150405"

// firstLineMaxLength caps the preview line extracted for display.
const firstLineMaxLength = 100

// Fault kinds reported for the distinct transcription failure modes.
const (
	KindTimeout        = "TranscriptionTimeout"
	KindWhisperError   = "WhisperError"
	KindOutputNotFound = "OutputNotFound"
)

// Error is a transcription failure with a machine-readable kind.
type Error struct {
	Kind string
	msg  string
}

func (e *Error) Error() string     { return e.msg }
func (e *Error) FaultKind() string { return e.Kind }

// Result holds the transcript artifacts produced for one audio file.
type Result struct {
	TxtPath    string
	MdPath     string
	Transcript string
}

// Transcriber invokes the whisper binary with a fixed timeout.
type Transcriber struct {
	bin      string
	model    string
	language string
	timeout  time.Duration

	outputDir string
	rep       *report.Reporter
}

// New builds a Transcriber from configuration. A missing model file is an
// initialization fault; the CLI layer treats it as fatal.
func New(cfg config.TranscribeConfig, outputDir string, rep *report.Reporter) (*Transcriber, error) {
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("whisper model not found: %s", cfg.Model)
	}

	return &Transcriber{
		bin:       cfg.Binary,
		model:     cfg.Model,
		language:  cfg.Language,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		outputDir: outputDir,
		rep:       rep,
	}, nil
}

// Transcribe validates the audio file, runs the whisper binary and writes
// transcript_<ts>.txt plus a markdown companion. Timeout, non-zero exit and
// a missing sidecar are distinct fault kinds.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, baseDir string) (*Result, error) {
	if err := validate.AudioFile(audioPath, baseDir); err != nil {
		return nil, err
	}
	if err := validate.DirectoryExists(t.outputDir, true); err != nil {
		return nil, err
	}

	if err := t.run(ctx, audioPath); err != nil {
		return nil, err
	}

	sidecar := audioPath + ".txt"
	raw, err := os.ReadFile(sidecar)
	if err != nil {
		return nil, &Error{Kind: KindOutputNotFound,
			msg: fmt.Sprintf("whisper output file not found: %s", sidecar)}
	}

	transcript := strings.TrimSpace(string(raw))
	if transcript == "" {
		t.rep.Notify(report.Warning, "transcribe", "EmptyTranscript",
			"whisper returned empty transcript", nil)
	}

	now := time.Now()
	stamp := now.Format(timestampFormat)
	txtPath := filepath.Join(t.outputDir, "transcript_"+stamp+".txt")
	mdPath := filepath.Join(t.outputDir, "transcript_"+stamp+".md")

	if err := os.WriteFile(txtPath, []byte(transcript), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", txtPath, err)
	}
	if err := os.WriteFile(mdPath, []byte(Markdown(transcript, filepath.Base(audioPath), now)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", mdPath, err)
	}

	if err := os.Remove(sidecar); err != nil {
		t.rep.Notify(report.Warning, "transcribe", "TempFileCleanup",
			fmt.Sprintf("failed to delete temp file: %v", err), err)
	}

	return &Result{TxtPath: txtPath, MdPath: mdPath, Transcript: transcript}, nil
}

func (t *Transcriber) run(ctx context.Context, audioPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// -otxt writes the sidecar, -nt drops timestamps. The language is
	// pinned instead of auto-detected; detection misfires on short clips.
	cmd := exec.CommandContext(ctx, t.bin,
		"-m", t.model,
		"-f", audioPath,
		"-l", t.language,
		"-otxt",
		"-nt",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout,
			msg: fmt.Sprintf("whisper transcription timed out after %s", t.timeout)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Error{Kind: KindWhisperError,
			msg: fmt.Sprintf("whisper failed with code %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))}
	}

	return &Error{Kind: KindWhisperError, msg: fmt.Sprintf("whisper failed: %v", err)}
}

// Markdown renders the transcript with its metadata header block.
func Markdown(transcript, audioFile string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Brain Dump Transcript\n\n")
	b.WriteString("**Date:** " + now.Format("2006-01-02 15:04:05") + "\n\n")
	b.WriteString("**Audio File:** " + audioFile + "\n\n")
	b.WriteString("---\n\n")
	b.WriteString(transcript)
	return b.String()
}

// FirstLine extracts the first line of a transcript for display, trimmed
// to 100 characters with an ellipsis.
func FirstLine(transcript string) string {
	if transcript == "" {
		return ""
	}
	line, _, _ := strings.Cut(transcript, "\n")
	line = strings.TrimSpace(line)
	if len(line) > firstLineMaxLength {
		return line[:firstLineMaxLength] + "..."
	}
	return line
}
