package errors

import (
	"fmt"
	"strings"
	"sync"
)

// Severity ranks a diagnostic
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Diagnostic is a reported build-time problem
type Diagnostic struct {
	Err      *Error
	Key      string
	Severity Severity
}

// Listener collects diagnostics during linking and querying.
// Reports with the same non-empty key are kept once.
// Safe for concurrent use.
type Listener struct {
	seen  map[string]struct{}
	diags []Diagnostic
	mu    sync.Mutex
}

// NewListener creates an empty listener
func NewListener() *Listener {
	return &Listener{seen: make(map[string]struct{})}
}

// Report records a diagnostic. It returns false if the key was already reported.
func (l *Listener) Report(sev Severity, key string, err *Error) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if key != "" {
		if _, dup := l.seen[key]; dup {
			return false
		}
		l.seen[key] = struct{}{}
	}
	l.diags = append(l.diags, Diagnostic{Err: err, Key: key, Severity: sev})
	return true
}

// Diagnostics returns a copy of everything reported so far
func (l *Listener) Diagnostics() []Diagnostic {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]Diagnostic, len(l.diags))
	copy(result, l.diags)
	return result
}

// Count returns the number of diagnostics of the given kind
func (l *Listener) Count(kind Kind) int {
	n := 0
	for _, d := range l.Diagnostics() {
		if d.Err.Kind == kind {
			n++
		}
	}
	return n
}

// HasErrors reports whether an error or fatal diagnostic was collected
func (l *Listener) HasErrors() bool {
	for _, d := range l.Diagnostics() {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// Err returns nil when no error-level diagnostic was reported,
// otherwise a *ListError holding them in report order.
func (l *Listener) Err() error {
	var errs []*Error
	for _, d := range l.Diagnostics() {
		if d.Severity >= SeverityError {
			errs = append(errs, d.Err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ListError{Errors: errs}
}

// ListError aggregates the error-level diagnostics of a failed pass
type ListError struct {
	Errors []*Error
}

func (e *ListError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is/As
func (e *ListError) Unwrap() []error {
	result := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		result[i] = err
	}
	return result
}
