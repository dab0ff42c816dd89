// Package wav persists captured PCM frames as canonical RIFF/WAVE files
// and reads basic stream info back for validation and duration reporting.
package wav

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/validate"
)

// FilenameFormat is the timestamp layout used in recording filenames.
const FilenameFormat = "2006-01-02_15-04-05"

// Info describes the stream parameters of a WAV file.
type Info struct {
	Channels   int
	BitDepth   int
	SampleRate int
	Frames     int64
}

// Filename returns the recording filename for the given instant,
// recording_<YYYY-MM-DD_HH-MM-SS>.wav.
func Filename(t time.Time) string {
	return "recording_" + t.Format(FilenameFormat) + ".wav"
}

// Write serializes frames as a mono 16-bit PCM WAV file in dir, named after
// the current local time. The file is synced and closed before the path is
// returned, and its existence is re-validated.
func Write(frames [][]int16, dir string, sampleRate int) (string, error) {
	path := filepath.Join(dir, Filename(time.Now()))

	if err := validate.OutputPath(path, dir, true); err != nil {
		return "", err
	}

	total := 0
	for _, frame := range frames {
		total += len(frame)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, 0, total),
		SourceBitDepth: 16,
	}
	for _, frame := range frames {
		for _, sample := range frame {
			buf.Data = append(buf.Data, int(sample))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	enc := gowav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := validate.FileExists(path); err != nil {
		return "", err
	}

	return path, nil
}

// ReadInfo decodes the header of the WAV file at path.
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := gowav.NewDecoder(f)
	d.ReadInfo()
	if d.Err() != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, d.Err())
	}
	if !d.WasPCMAccessed() {
		if err := d.FwdToPCM(); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	channels := int(d.NumChans)
	bytesPerFrame := channels * int(d.BitDepth) / 8
	if bytesPerFrame == 0 {
		return nil, fmt.Errorf("invalid wav header in %s", path)
	}

	return &Info{
		Channels:   channels,
		BitDepth:   int(d.BitDepth),
		SampleRate: int(d.SampleRate),
		Frames:     d.PCMLen() / int64(bytesPerFrame),
	}, nil
}

// Samples reads the full PCM payload of the WAV file at path.
func Samples(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := gowav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return buf.Data, nil
}

// DurationSeconds returns the rounded duration of the WAV file at path. It
// validates that the file exists first.
func DurationSeconds(path string) (int, error) {
	if err := validate.FileExists(path); err != nil {
		return 0, err
	}

	info, err := ReadInfo(path)
	if err != nil {
		return 0, err
	}
	if info.SampleRate == 0 {
		return 0, fmt.Errorf("invalid sample rate in %s", path)
	}

	return int(math.Round(float64(info.Frames) / float64(info.SampleRate))), nil
}
