// Package report fans structured error and warning events out to a set of
// observers. A Reporter is constructed once per process and injected into
// every component; the daemon must keep running through non-fatal faults,
// so reporting here never panics and observer failures are isolated.
package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
)

// Level is the severity of a reported event.
type Level int

const (
	Info Level = iota
	Warning
	Error
	Critical
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Observer receives every reported event. Implementations must be
// comparable (pointer receivers), since duplicate subscription is a no-op.
type Observer interface {
	Observe(level Level, context, kind, message string, cause error)
}

// kinder is implemented by errors that carry their own fault kind.
type kinder interface {
	FaultKind() string
}

// Reporter records events, notifies subscribed observers and always writes
// a LEVEL:context:kind:message backup line to the error stream.
type Reporter struct {
	mu        sync.Mutex
	observers []Observer
	count     int

	errw io.Writer
	exit func(code int)
}

// New returns a Reporter writing backup lines to errw (os.Stderr when nil),
// with a default slog observer already subscribed.
func New(errw io.Writer) *Reporter {
	if errw == nil {
		errw = os.Stderr
	}
	r := &Reporter{errw: errw, exit: os.Exit}
	r.Subscribe(&slogObserver{})
	return r
}

// SetExitFunc replaces the process exit used by fatal faults. Tests use
// this to observe the exit code instead of terminating.
func (r *Reporter) SetExitFunc(exit func(code int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exit = exit
}

// Subscribe adds an observer. Subscribing the same observer twice is a
// no-op.
func (r *Reporter) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.observers {
		if existing == o {
			return
		}
	}
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer if present.
func (r *Reporter) Unsubscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.observers {
		if existing == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Notify records an event and delivers it to every observer. A panicking
// observer is reported on the error stream and does not stop delivery to
// the others. ERROR and CRITICAL events with a cause also get the cause
// detail written to the error stream.
func (r *Reporter) Notify(level Level, context, kind, message string, cause error) {
	r.mu.Lock()
	r.count++
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	errw := r.errw
	r.mu.Unlock()

	for _, o := range observers {
		r.deliver(o, level, context, kind, message, cause)
	}

	fmt.Fprintf(errw, "%s:%s:%s:%s\n", level, context, kind, message)
	if cause != nil && level >= Error {
		fmt.Fprintf(errw, "cause: %+v\n", cause)
	}
}

func (r *Reporter) deliver(o Observer, level Level, context, kind, message string, cause error) {
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(r.errw, "ERROR:report.deliver:ObserverFailure:observer failed: %v\n", p)
		}
	}()
	o.Observe(level, context, kind, message, cause)
}

// Fault reports an error, deriving the kind from the cause. With fatal set
// the level is CRITICAL and the process exits non-zero after notifying.
func (r *Reporter) Fault(context string, cause error, fatal bool) {
	level := Error
	if fatal {
		level = Critical
	}
	r.Notify(level, context, KindOf(cause), cause.Error(), cause)
	if fatal {
		r.mu.Lock()
		exit := r.exit
		r.mu.Unlock()
		exit(1)
	}
}

// Count returns the number of events notified so far.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ResetCount zeroes the event counter.
func (r *Reporter) ResetCount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = 0
}

// KindOf derives a fault kind from an error: the error's own kind when it
// carries one, otherwise its Go type name.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.FaultKind()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.String()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "errorString" || name == "wrapError" {
		return "Error"
	}
	return name
}

// slogObserver is the default observer, logging through the process-wide
// slog handler configured by the CLI layer.
type slogObserver struct{}

func (*slogObserver) Observe(level Level, context, kind, message string, cause error) {
	attrs := []any{"context", context, "kind", kind}
	if cause != nil {
		attrs = append(attrs, "cause", cause)
	}
	switch level {
	case Info:
		slog.Info(message, attrs...)
	case Warning:
		slog.Warn(message, attrs...)
	default:
		slog.Error(message, attrs...)
	}
}
