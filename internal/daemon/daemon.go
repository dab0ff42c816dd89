// Package daemon implements the line-delimited command protocol spoken
// over standard streams with the parent process. Commands arrive one per
// line on the input stream; protocol events are written one per line to
// the output stream.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Iamcodio/IAC-30-brain-dump-voice-processor/internal/report"
)

// Protocol commands accepted on the input stream.
const (
	CmdStart = "start"
	CmdStop  = "stop"
	CmdQuit  = "quit"
)

// Protocol events emitted on the output stream.
const (
	EventReady            = "READY"
	EventRecordingStarted = "RECORDING_STARTED"
	EventRecordingStopped = "RECORDING_STOPPED"
	EventError            = "ERROR"

	// NoAudioMarker replaces the file path when a recording produced no
	// frames.
	NoAudioMarker = "no_audio"
)

// Error kinds surfaced as ERROR:<kind> protocol lines.
const (
	KindStartFailed = "RecordingStartFailed"
	KindStopFailed  = "RecordingStopFailed"
)

// Engine is the capture engine driven by the command loop. Start reports
// whether a recording actually began (false when one was already running).
// Stop returns the saved file path, or "" when no audio was captured.
type Engine interface {
	Start() (bool, error)
	Stop() (string, error)
	Cleanup()
}

// Daemon reads commands, drives the engine and emits protocol events. It
// is the single recovery boundary: a failed command is reported and the
// loop keeps running.
type Daemon struct {
	engine Engine
	in     io.Reader
	out    io.Writer
	rep    *report.Reporter
}

func New(engine Engine, in io.Reader, out io.Writer, rep *report.Reporter) *Daemon {
	return &Daemon{engine: engine, in: in, out: out, rep: rep}
}

// Run emits READY and processes commands until quit, end of input or
// context cancellation (the signal path, treated exactly like quit).
// Cleanup is guaranteed to run before Run returns, including when a fault
// escapes a command handler.
func (d *Daemon) Run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			d.engine.Cleanup()
			err = fmt.Errorf("daemon loop fault: %v", p)
			d.rep.Notify(report.Critical, "daemon.run", "DaemonFault", err.Error(), err)
		}
	}()

	d.emit(EventReady)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			d.engine.Cleanup()
			return nil

		case line, ok := <-lines:
			if !ok {
				// End of input: the parent went away, shut down as if it
				// had sent quit.
				d.engine.Cleanup()
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("input stream error: %w", err)
					}
				default:
				}
				return nil
			}
			if d.dispatch(strings.TrimSpace(line)) {
				return nil
			}
		}
	}
}

// dispatch handles one command line and reports whether the loop should
// exit. Unrecognized input is warned about and never fatal.
func (d *Daemon) dispatch(command string) (done bool) {
	switch command {
	case "":
		return false

	case CmdStart:
		started, err := d.engine.Start()
		if err != nil {
			d.rep.Fault("daemon.start", err, false)
			d.emit(EventError + ":" + KindStartFailed)
			return false
		}
		if started {
			d.emit(EventRecordingStarted)
		}
		return false

	case CmdStop:
		path, err := d.engine.Stop()
		if err != nil {
			d.rep.Fault("daemon.stop", err, false)
			d.emit(EventError + ":" + KindStopFailed)
			return false
		}
		if path == "" {
			d.emit(EventRecordingStopped + ":" + NoAudioMarker)
		} else {
			d.emit(EventRecordingStopped + ":" + path)
		}
		return false

	case CmdQuit:
		d.engine.Cleanup()
		return true

	default:
		d.rep.Notify(report.Warning, "daemon.run", "UnknownCommand",
			fmt.Sprintf("unknown command: %s", command), nil)
		return false
	}
}

func (d *Daemon) emit(event string) {
	fmt.Fprintln(d.out, event)
}
