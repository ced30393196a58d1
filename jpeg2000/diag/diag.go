// Package diag carries structural warnings raised while parsing JPEG 2000
// containers and codestreams.
//
// Parsing never fails on a malformed but recoverable structure. Instead each
// problem is reported once to a Handler and parsing continues with the best
// available interpretation.
package diag

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Source identifies which parser raised a diagnostic.
type Source string

const (
	SourceBox        Source = "box"
	SourceCodestream Source = "codestream"
)

// Diagnostic is a single structural warning.
type Diagnostic struct {
	Source  Source
	Offset  int64 // byte offset in the file, -1 if unknown
	Message string
}

func (d Diagnostic) String() string {
	if d.Offset < 0 {
		return fmt.Sprintf("%s: %s", d.Source, d.Message)
	}
	return fmt.Sprintf("%s @%d: %s", d.Source, d.Offset, d.Message)
}

// Handler receives diagnostics as they occur.
type Handler func(Diagnostic)

// Emit reports a formatted diagnostic to h. A nil handler drops it.
func (h Handler) Emit(src Source, offset int64, format string, args ...any) {
	if h == nil {
		return
	}
	h(Diagnostic{Source: src, Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// Logger returns a handler that logs every diagnostic at warn level.
// A nil logger uses the logrus standard logger.
func Logger(l *log.Logger) Handler {
	if l == nil {
		l = log.StandardLogger()
	}
	return func(d Diagnostic) {
		entry := l.WithField("source", string(d.Source))
		if d.Offset >= 0 {
			entry = entry.WithField("offset", d.Offset)
		}
		entry.Warn(d.Message)
	}
}

// Tee fans a diagnostic out to several handlers.
func Tee(handlers ...Handler) Handler {
	return func(d Diagnostic) {
		for _, h := range handlers {
			if h != nil {
				h(d)
			}
		}
	}
}

// Recorder collects diagnostics. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Handler returns a handler appending to r.
func (r *Recorder) Handler() Handler {
	return func(d Diagnostic) {
		r.mu.Lock()
		r.items = append(r.items, d)
		r.mu.Unlock()
	}
}

// Diagnostics returns a copy of everything recorded so far.
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded diagnostics.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Contains reports whether any recorded message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, d := range r.Diagnostics() {
		if strings.Contains(strings.ToLower(d.Message), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
