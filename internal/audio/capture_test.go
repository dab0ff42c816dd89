package audio

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/wav"
)

// newTestCapture builds a Capture without touching the audio subsystem.
// The callback and Stop paths are pure Go and testable without a device.
func newTestCapture(t *testing.T, errw *bytes.Buffer) *Capture {
	t.Helper()
	return &Capture{
		cfg:       config.Default().Audio,
		outputDir: t.TempDir(),
		rep:       report.New(errw),
	}
}

func TestCallbackAppendsOnlyWhileRecording(t *testing.T) {
	c := newTestCapture(t, &bytes.Buffer{})
	in := []int16{1, 2, 3}

	c.callback(in, portaudio.StreamCallbackTimeInfo{}, 0)
	if len(c.frames) != 0 {
		t.Fatalf("callback appended %d frames while idle", len(c.frames))
	}

	c.recording.Store(true)
	c.callback(in, portaudio.StreamCallbackTimeInfo{}, 0)
	c.callback(in, portaudio.StreamCallbackTimeInfo{}, 0)
	if len(c.frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(c.frames))
	}
}

func TestCallbackCopiesInput(t *testing.T) {
	c := newTestCapture(t, &bytes.Buffer{})
	c.recording.Store(true)

	in := []int16{1, 2, 3}
	c.callback(in, portaudio.StreamCallbackTimeInfo{}, 0)

	// the driver reuses its buffer between callbacks
	in[0] = 99
	if c.frames[0][0] != 1 {
		t.Errorf("frames[0][0] = %d, want 1 (input not copied)", c.frames[0][0])
	}
}

func TestCallbackWarnsOnStatusFlags(t *testing.T) {
	var errw bytes.Buffer
	c := newTestCapture(t, &errw)
	c.recording.Store(true)

	c.callback([]int16{1}, portaudio.StreamCallbackTimeInfo{}, portaudio.InputOverflow)

	if !strings.Contains(errw.String(), "AudioStreamWarning") {
		t.Errorf("stderr %q does not mention AudioStreamWarning", errw.String())
	}
	if len(c.frames) != 1 {
		t.Errorf("flagged buffer should still be captured, frames = %d", len(c.frames))
	}
}

func TestStartWhileRecordingIsWarnedNoOp(t *testing.T) {
	var errw bytes.Buffer
	c := newTestCapture(t, &errw)
	c.recording.Store(true)

	started, err := c.Start()
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if started {
		t.Error("Start = true while already recording")
	}
	if !strings.Contains(errw.String(), "AlreadyRecording") {
		t.Errorf("stderr %q does not mention AlreadyRecording", errw.String())
	}
}

func TestStopWritesCapturedFrames(t *testing.T) {
	c := newTestCapture(t, &bytes.Buffer{})
	c.recording.Store(true)
	c.callback([]int16{1, 2}, portaudio.StreamCallbackTimeInfo{}, 0)
	c.callback([]int16{3, 4}, portaudio.StreamCallbackTimeInfo{}, 0)

	path, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if filepath.Dir(path) != c.outputDir {
		t.Errorf("path %q not in output dir %q", path, c.outputDir)
	}
	if c.recording.Load() {
		t.Error("still recording after Stop")
	}

	samples, err := wav.Samples(path)
	if err != nil {
		t.Fatalf("Samples error: %v", err)
	}
	want := []int{1, 2, 3, 4}
	if len(samples) != len(want) {
		t.Fatalf("samples = %v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("samples[%d] = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestStopWithoutAudioReturnsEmptyPath(t *testing.T) {
	var errw bytes.Buffer
	c := newTestCapture(t, &errw)
	c.recording.Store(true)

	path, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if !strings.Contains(errw.String(), "NoAudioData") {
		t.Errorf("stderr %q does not mention NoAudioData", errw.String())
	}
}

func TestStopDrainsFrames(t *testing.T) {
	c := newTestCapture(t, &bytes.Buffer{})
	c.recording.Store(true)
	c.callback([]int16{1}, portaudio.StreamCallbackTimeInfo{}, 0)

	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	// a second stop sees no leftover audio
	path, err := c.Stop()
	if err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
	if path != "" {
		t.Errorf("second Stop path = %q, want empty", path)
	}
}

func TestCleanupWithoutInitIsSafe(t *testing.T) {
	c := newTestCapture(t, &bytes.Buffer{})
	c.Cleanup()
	c.Cleanup()

	if c.recording.Load() {
		t.Error("still recording after Cleanup")
	}
}
