package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body+"\n"), 0o644))
	return path
}

func newClient(script string, timeoutSeconds int, errw *bytes.Buffer) *Client {
	return NewClient(config.StoreConfig{
		Node:           "/bin/sh",
		Script:         script,
		TimeoutSeconds: timeoutSeconds,
	}, report.New(errw))
}

func sampleRecording() *Recording {
	return &Recording{
		ID:            NewRecordingID(),
		Timestamp:     "2025-01-02T03:04:05Z",
		Duration:      42,
		AudioFile:     "outputs/audio/recording_2025-01-02_03-04-05.wav",
		TranscriptTxt: "outputs/transcripts/transcript_2025-01-02_030405.txt",
		TranscriptMd:  "outputs/transcripts/transcript_2025-01-02_030405.md",
		FirstLine:     "hello brain dump",
		Metadata:      Metadata{Model: "whisper-base", Language: "en"},
	}
}

func TestNewRecordingID(t *testing.T) {
	a := NewRecordingID()
	b := NewRecordingID()

	assert.True(t, strings.HasPrefix(a, "rec_"))
	assert.NotEqual(t, a, b)
}

func TestSaveSuccess(t *testing.T) {
	dir := t.TempDir()
	received := filepath.Join(dir, "received.json")
	script := writeScript(t, dir, "add_recording.sh", fmt.Sprintf(`cat > %q`, received))

	var errw bytes.Buffer
	rec := sampleRecording()

	ok := newClient(script, 5, &errw).Save(context.Background(), rec)
	require.True(t, ok)
	assert.Contains(t, errw.String(), "DatabaseUpdated")

	// the script received the record as one JSON document on stdin
	payload, err := os.ReadFile(received)
	require.NoError(t, err)

	var got Recording
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, *rec, got)
}

func TestSaveScriptFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "add_recording.sh", `echo "db is locked" >&2; exit 1`)

	var errw bytes.Buffer
	ok := newClient(script, 5, &errw).Save(context.Background(), sampleRecording())

	assert.False(t, ok)
	assert.Contains(t, errw.String(), "DatabaseError")
	assert.Contains(t, errw.String(), "db is locked")
}

func TestSaveTimeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "add_recording.sh", `sleep 5`)

	var errw bytes.Buffer
	ok := newClient(script, 1, &errw).Save(context.Background(), sampleRecording())

	assert.False(t, ok)
	assert.Contains(t, errw.String(), "DatabaseTimeout")
}

func TestSaveMissingScript(t *testing.T) {
	var errw bytes.Buffer
	ok := newClient(filepath.Join(t.TempDir(), "nope.js"), 5, &errw).Save(context.Background(), sampleRecording())

	assert.False(t, ok)
	assert.Contains(t, errw.String(), "database script not found")
}

func TestRecordingJSONFieldNames(t *testing.T) {
	payload, err := json.Marshal(sampleRecording())
	require.NoError(t, err)

	for _, key := range []string{
		`"id"`, `"timestamp"`, `"duration"`, `"audioFile"`,
		`"transcriptTxt"`, `"transcriptMd"`, `"firstLine"`,
		`"metadata"`, `"model"`, `"language"`,
	} {
		assert.Containsf(t, string(payload), key, "payload missing %s", key)
	}
}
