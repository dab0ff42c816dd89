// Package store persists recording metadata through an external script
// that accepts one JSON record on standard input. The store is best
// effort: a failed save is reported and the pipeline continues.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/config"
	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
)

// Recording is the metadata record for one processed voice memo.
type Recording struct {
	ID            string   `json:"id"`
	Timestamp     string   `json:"timestamp"`
	Duration      int      `json:"duration"`
	AudioFile     string   `json:"audioFile"`
	TranscriptTxt string   `json:"transcriptTxt"`
	TranscriptMd  string   `json:"transcriptMd"`
	FirstLine     string   `json:"firstLine"`
	Metadata      Metadata `json:"metadata"`
}

// Metadata records how the transcript was produced.
type Metadata struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

// NewRecordingID returns a unique recording identifier.
func NewRecordingID() string {
	return "rec_" + uuid.NewString()
}

// Client invokes the store script with a fixed timeout.
type Client struct {
	node    string
	script  string
	timeout time.Duration
	rep     *report.Reporter
}

func NewClient(cfg config.StoreConfig, rep *report.Reporter) *Client {
	return &Client{
		node:    cfg.Node,
		script:  cfg.Script,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		rep:     rep,
	}
}

// Save writes rec to the store, reporting success or failure. It returns
// false instead of an error: metadata persistence must never fail the
// transcription pipeline.
func (c *Client) Save(ctx context.Context, rec *Recording) bool {
	if _, err := os.Stat(c.script); err != nil {
		c.rep.Notify(report.Error, "store.save", "DatabaseError",
			fmt.Sprintf("database script not found: %s", c.script), err)
		return false
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		c.rep.Notify(report.Error, "store.save", "DatabaseError",
			fmt.Sprintf("failed to encode recording: %v", err), err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.node, c.script)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.rep.Notify(report.Error, "store.save", "DatabaseTimeout",
				fmt.Sprintf("database operation timed out after %s", c.timeout), err)
			return false
		}
		c.rep.Notify(report.Error, "store.save", "DatabaseError",
			fmt.Sprintf("database script failed: %s", strings.TrimSpace(stderr.String())), err)
		return false
	}

	c.rep.Notify(report.Info, "store.save", "DatabaseUpdated",
		fmt.Sprintf("database updated: %s", rec.ID), nil)
	return true
}
