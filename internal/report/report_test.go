package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	level   Level
	context string
	kind    string
	message string
	cause   error
}

type recordingObserver struct {
	events []event
}

func (o *recordingObserver) Observe(level Level, context, kind, message string, cause error) {
	o.events = append(o.events, event{level, context, kind, message, cause})
}

type panickyObserver struct{}

func (*panickyObserver) Observe(Level, string, string, string, error) {
	panic("observer exploded")
}

func TestNotifyDeliversAndWritesBackupLine(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	obs := &recordingObserver{}
	r.Subscribe(obs)

	r.Notify(Warning, "audio.capture", "NoAudioData", "no frames captured", nil)

	require.Len(t, obs.events, 1)
	assert.Equal(t, Warning, obs.events[0].level)
	assert.Equal(t, "audio.capture", obs.events[0].context)
	assert.Equal(t, "NoAudioData", obs.events[0].kind)
	assert.Contains(t, buf.String(), "WARNING:audio.capture:NoAudioData:no frames captured\n")
}

func TestNotifyWritesCauseForErrors(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	cause := errors.New("stream underflow")

	r.Notify(Warning, "audio", "X", "warn", cause)
	assert.NotContains(t, buf.String(), "cause:")

	r.Notify(Error, "audio", "X", "err", cause)
	assert.Contains(t, buf.String(), "cause: stream underflow")
}

func TestSubscribeDeduplicates(t *testing.T) {
	r := New(&bytes.Buffer{})
	obs := &recordingObserver{}
	r.Subscribe(obs)
	r.Subscribe(obs)

	r.Notify(Info, "c", "K", "m", nil)

	assert.Len(t, obs.events, 1)
}

func TestUnsubscribe(t *testing.T) {
	r := New(&bytes.Buffer{})
	obs := &recordingObserver{}
	r.Subscribe(obs)
	r.Unsubscribe(obs)

	r.Notify(Info, "c", "K", "m", nil)

	assert.Empty(t, obs.events)
}

func TestObserverPanicIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Subscribe(&panickyObserver{})
	obs := &recordingObserver{}
	r.Subscribe(obs)

	require.NotPanics(t, func() {
		r.Notify(Error, "c", "K", "m", nil)
	})

	// later observers still receive the event, and the failure is reported
	assert.Len(t, obs.events, 1)
	assert.Contains(t, buf.String(), "ObserverFailure")
	assert.Contains(t, buf.String(), "observer exploded")
}

func TestCount(t *testing.T) {
	r := New(&bytes.Buffer{})
	assert.Equal(t, 0, r.Count())

	r.Notify(Info, "c", "K", "m", nil)
	r.Notify(Error, "c", "K", "m", nil)
	assert.Equal(t, 2, r.Count())

	r.ResetCount()
	assert.Equal(t, 0, r.Count())
}

func TestFaultNonFatal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	exited := false
	r.SetExitFunc(func(int) { exited = true })

	r.Fault("daemon.start", errors.New("device busy"), false)

	assert.False(t, exited)
	assert.Contains(t, buf.String(), "ERROR:daemon.start:Error:device busy")
}

func TestFaultFatalExits(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	code := -1
	r.SetExitFunc(func(c int) { code = c })

	r.Fault("daemon.init", errors.New("no input device"), true)

	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(buf.String(), "CRITICAL:daemon.init:"))
}

type kindedError struct{ kind string }

func (e *kindedError) Error() string     { return "kinded" }
func (e *kindedError) FaultKind() string { return e.kind }

type plainError struct{}

func (plainError) Error() string { return "plain" }

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("boom"), "Error"},
		{fmt.Errorf("wrap: %w", errors.New("boom")), "Error"},
		{&kindedError{kind: "PermissionDenied"}, "PermissionDenied"},
		{fmt.Errorf("wrap: %w", &kindedError{kind: "NotFound"}), "NotFound"},
		{plainError{}, "plainError"},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, KindOf(tt.err), "KindOf(%v)", tt.err)
	}
}
