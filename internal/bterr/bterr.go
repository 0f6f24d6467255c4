// Package bterr defines the engine's error taxonomy.
//
// Every error the engine raises is a *Error with a Kind, so callers can
// branch with errors.Is / errors.As instead of string matching.
package bterr

import "fmt"

// Kind classifies the origin of an engine error, per spec.md §7.
type Kind string

const (
	KindComposition          Kind = "composition"
	KindBlackboardMiss       Kind = "blackboard_miss"
	KindWrongType            Kind = "wrong_type"
	KindParse                Kind = "parse"
	KindScript               Kind = "script"
	KindRegistrationConflict Kind = "registration_conflict"
	KindNotRegistered        Kind = "not_registered"
	KindTimer                Kind = "timer"
	KindProtocol             Kind = "protocol"
)

// Error is the concrete error type raised by every engine component.
type Error struct {
	Kind Kind
	// NodeUID is the 16-bit uid of the offending node, if known. -1 if unset.
	NodeUID int32
	// NodePath is the human/Groot-style path of the offending node, if known.
	NodePath string
	// Key is the blackboard key or port name involved, if any.
	Key string
	Msg string
	Err error
}

func (e *Error) Error() string {
	s := string(e.Kind) + ": " + e.Msg
	if e.NodePath != "" {
		s += " (node=" + e.NodePath + ")"
	}
	if e.Key != "" {
		s += " (key=" + e.Key + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, bterr.Composition) etc. match on Kind alone, by
// comparing against a sentinel created with New(kind, "", nil).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" || t.Err != nil {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a bare *Error for a given kind, usable as an errors.Is sentinel
// (e.g. bterr.Composition) or as a template via WithMsg / Wrap.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, NodePath: path, NodeUID: -1, Err: err}
}

func (e *Error) WithMsg(format string, args ...any) *Error {
	clone := *e
	clone.Msg = fmt.Sprintf(format, args...)
	return &clone
}

func (e *Error) WithUID(uid int32) *Error {
	clone := *e
	clone.NodeUID = uid
	return &clone
}

func (e *Error) WithKey(key string) *Error {
	clone := *e
	clone.Key = key
	return &clone
}

// Sentinels for errors.Is comparisons against bare kinds.
var (
	Composition          = New(KindComposition, "", nil)
	BlackboardMiss        = New(KindBlackboardMiss, "", nil)
	WrongType            = New(KindWrongType, "", nil)
	Parse                = New(KindParse, "", nil)
	Script               = New(KindScript, "", nil)
	RegistrationConflict = New(KindRegistrationConflict, "", nil)
	NotRegistered        = New(KindNotRegistered, "", nil)
	Timer                = New(KindTimer, "", nil)
	Protocol             = New(KindProtocol, "", nil)
)

// Compositionf builds a composition error with a formatted message.
func Compositionf(path string, format string, args ...any) *Error {
	return Composition.WithMsg(format, args...).withPath(path)
}

func BlackboardMissf(path, key string, format string, args ...any) *Error {
	return BlackboardMiss.WithMsg(format, args...).withPath(path).WithKey(key)
}

func WrongTypef(path, key string, format string, args ...any) *Error {
	return WrongType.WithMsg(format, args...).withPath(path).WithKey(key)
}

func Parsef(format string, args ...any) *Error {
	return Parse.WithMsg(format, args...)
}

func Scriptf(path string, err error, format string, args ...any) *Error {
	clone := Script.WithMsg(format, args...).withPath(path)
	clone.Err = err
	return clone
}

func RegistrationConflictf(format string, args ...any) *Error {
	return RegistrationConflict.WithMsg(format, args...)
}

func NotRegisteredf(format string, args ...any) *Error {
	return NotRegistered.WithMsg(format, args...)
}

func Timerf(path string, err error, format string, args ...any) *Error {
	clone := Timer.WithMsg(format, args...).withPath(path)
	clone.Err = err
	return clone
}

func (e *Error) withPath(path string) *Error {
	clone := *e
	clone.NodePath = path
	return &clone
}
