package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild    Phase = "build"    // declaration construction
	PhaseLink     Phase = "link"     // pending name resolution
	PhaseResolve  Phase = "resolve"  // reference and typedef resolution
	PhaseCompose  Phase = "compose"  // composition chain building
	PhaseNarrow   Phase = "narrow"   // auto-narrowing resolution
	PhaseVariance Phase = "variance" // producer/consumer analysis
	PhaseQuery    Phase = "query"    // checker entry points
	PhaseLoad     Phase = "load"     // manifest and WIT import
	PhaseParse    Phase = "parse"    // manifest type syntax
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnresolvedReference Kind = "unresolved_reference"
	KindCyclicComposition   Kind = "cyclic_composition"
	KindIllegalNarrowing    Kind = "illegal_narrowing"
	KindInternalInvariant   Kind = "internal_invariant"
	KindArityMismatch       Kind = "arity_mismatch"
	KindDuplicate           Kind = "duplicate"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidData         Kind = "invalid_data"
	KindUnsupported         Kind = "unsupported"
	KindFrozen              Kind = "frozen"
)

// Error is the structured error type used throughout the toolchain
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Decl   string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, " -> "))
	}

	if e.Decl != "" || e.Type != "" {
		b.WriteString(": ")
		if e.Decl != "" && e.Type != "" {
			b.WriteString("declaration ")
			b.WriteString(e.Decl)
			b.WriteString(", type ")
			b.WriteString(e.Type)
		} else if e.Decl != "" {
			b.WriteString("declaration ")
			b.WriteString(e.Decl)
		} else {
			b.WriteString("type ")
			b.WriteString(e.Type)
		}
	}

	if e.Detail != "" {
		if e.Decl != "" || e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the composition path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Decl sets the declaration name
func (b *Builder) Decl(name string) *Builder {
	b.err.Decl = name
	return b
}

// Type sets the type text
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the diagnostic taxonomy

// UnresolvedReference creates an error for a name that never resolved by end of link
func UnresolvedReference(name, scope string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindUnresolvedReference,
		Decl:   scope,
		Detail: fmt.Sprintf("unresolved name %q", name),
		Value:  name,
	}
}

// CyclicComposition creates an error for a composition or typedef cycle.
// The path lists the participants in the order they were entered.
func CyclicComposition(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCyclicComposition,
		Path:   path,
		Detail: "cycle detected",
	}
}

// IllegalNarrowing creates an error for auto-narrowing without a matching parent or child
func IllegalNarrowing(declName, detail string) *Error {
	return &Error{
		Phase:  PhaseNarrow,
		Kind:   KindIllegalNarrowing,
		Decl:   declName,
		Detail: detail,
	}
}

// InternalInvariant creates an error for a state an earlier phase should have ruled out
func InternalInvariant(phase Phase, detail string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternalInvariant,
		Detail: detail,
		Value:  value,
	}
}

// ArityMismatch creates a type-argument count error
func ArityMismatch(declName, typeText string, want, got int) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindArityMismatch,
		Decl:   declName,
		Type:   typeText,
		Detail: fmt.Sprintf("expected at most %d type arguments, got %d", want, got),
		Value:  got,
	}
}

// Duplicate creates a duplicate-definition error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("duplicate %s %q", what, name),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Frozen creates an error for a mutation attempted after the repository was frozen
func Frozen(what string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindFrozen,
		Detail: fmt.Sprintf("%s after freeze", what),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a manifest loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// IsInternal reports whether err carries an internal invariant violation
func IsInternal(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == KindInternalInvariant
}

// Recover converts a panic carrying an internal invariant *Error into a returned error.
// Any other panic is re-raised.
//
//	func link() (err error) {
//		defer errors.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok && e.Kind == KindInternalInvariant {
		*errp = e
		return
	}
	panic(r)
}
