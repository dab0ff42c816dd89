// Package audio owns the microphone capture stream. A Capture is the sole
// owner of the PortAudio device handle; frames are appended by the driver
// callback and drained by Stop on the command-processing goroutine.
package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/validate"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/wav"
)

// Capture records microphone audio into an in-memory frame buffer and
// persists it as a WAV file on Stop.
type Capture struct {
	cfg       config.AudioConfig
	outputDir string
	rep       *report.Reporter

	// recording gates the driver callback. Stop flips it off before
	// closing the stream: a callback racing with Stop either observes
	// false and drops its buffer, or has already appended and is included
	// in the file. The flag flip is the linearization point; the callback
	// must never block on the close.
	recording atomic.Bool

	mu     sync.Mutex
	frames [][]int16

	stream      *portaudio.Stream
	initialized bool
	termOnce    sync.Once
}

// NewCapture validates (and creates) the output directory and initializes
// the audio subsystem. Both failures are initialization faults; the caller
// treats them as fatal.
func NewCapture(cfg config.AudioConfig, outputDir string, rep *report.Reporter) (*Capture, error) {
	if err := validate.DirectoryExists(outputDir, true); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio subsystem initialization failed: %w", err)
	}

	return &Capture{
		cfg:         cfg,
		outputDir:   outputDir,
		rep:         rep,
		initialized: true,
	}, nil
}

// Start opens the input stream and begins capturing. It returns false with
// a nil error when a recording is already in progress (warned, not an
// error). Device-open failures are returned to the caller; the capture
// stays idle and usable.
func (c *Capture) Start() (bool, error) {
	if c.recording.Load() {
		c.rep.Notify(report.Warning, "capture.start", "AlreadyRecording",
			"recording already in progress", nil)
		return false, nil
	}

	stream, err := c.openStream()
	if err != nil {
		c.recording.Store(false)
		return false, fmt.Errorf("failed to open input stream: %w", err)
	}

	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()

	c.stream = stream
	c.recording.Store(true)

	if err := stream.Start(); err != nil {
		c.recording.Store(false)
		if cerr := stream.Close(); cerr != nil {
			c.rep.Notify(report.Warning, "capture.start", "StreamCloseError",
				fmt.Sprintf("error closing stream: %v", cerr), cerr)
		}
		c.stream = nil
		return false, fmt.Errorf("failed to start input stream: %w", err)
	}

	slog.Debug("recording started",
		"sample_rate", c.cfg.SampleRate, "frames_per_buffer", c.cfg.FramesPerBuffer)
	return true, nil
}

func (c *Capture) openStream() (*portaudio.Stream, error) {
	if c.cfg.Device < 0 {
		return portaudio.OpenDefaultStream(
			c.cfg.Channels, 0, float64(c.cfg.SampleRate), c.cfg.FramesPerBuffer, c.callback)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if c.cfg.Device >= len(devices) {
		return nil, fmt.Errorf("input device index %d out of range (%d devices)", c.cfg.Device, len(devices))
	}

	params := portaudio.HighLatencyParameters(devices[c.cfg.Device], nil)
	params.Input.Channels = c.cfg.Channels
	params.SampleRate = float64(c.cfg.SampleRate)
	params.FramesPerBuffer = c.cfg.FramesPerBuffer
	return portaudio.OpenStream(params, c.callback)
}

// callback runs on the audio driver's goroutine, once per captured buffer.
// It only copies and appends; anything slower would starve the driver.
func (c *Capture) callback(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags != 0 {
		c.rep.Notify(report.Warning, "capture.callback", "AudioStreamWarning",
			fmt.Sprintf("stream status flags: %v", flags), nil)
	}

	if !c.recording.Load() || len(in) == 0 {
		return
	}

	chunk := make([]int16, len(in))
	copy(chunk, in)

	c.mu.Lock()
	c.frames = append(c.frames, chunk)
	c.mu.Unlock()
}

// Stop halts capture and persists the buffered frames. It returns the
// written file path, or "" when no audio was captured (warned, no file
// written). Stream close failures are warned and do not prevent the save.
func (c *Capture) Stop() (string, error) {
	c.recording.Store(false)

	c.closeStream("capture.stop")

	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()

	if len(frames) == 0 {
		c.rep.Notify(report.Warning, "capture.stop", "NoAudioData",
			"no audio data captured", nil)
		return "", nil
	}

	path, err := wav.Write(frames, c.outputDir, c.cfg.SampleRate)
	if err != nil {
		return "", err
	}

	slog.Debug("recording saved", "path", path, "buffers", len(frames))
	return path, nil
}

func (c *Capture) closeStream(context string) {
	if c.stream == nil {
		return
	}
	if err := c.stream.Stop(); err != nil {
		c.rep.Notify(report.Warning, context, "StreamCloseError",
			fmt.Sprintf("error stopping stream: %v", err), err)
	}
	if err := c.stream.Close(); err != nil {
		c.rep.Notify(report.Warning, context, "StreamCloseError",
			fmt.Sprintf("error closing stream: %v", err), err)
	}
	c.stream = nil
}

// Cleanup releases the stream and the audio subsystem. It is idempotent
// and safe to call from a signal-driven shutdown path; failures are warned,
// never propagated.
func (c *Capture) Cleanup() {
	c.recording.Store(false)

	c.closeStream("capture.cleanup")

	if c.initialized {
		c.termOnce.Do(func() {
			if err := portaudio.Terminate(); err != nil {
				c.rep.Notify(report.Warning, "capture.cleanup", "AudioCleanupError",
					fmt.Sprintf("error terminating audio subsystem: %v", err), err)
			}
		})
	}
}
