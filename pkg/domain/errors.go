package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Structured errors below wrap one of
// these so callers can match with errors.Is regardless of context.
var (
	ErrEmptyField        = errors.New("empty field")
	ErrNotANumber        = errors.New("not a number")
	ErrAgeOutOfRange     = errors.New("age out of range")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrNotFound          = errors.New("not found")
	ErrDanglingReference = errors.New("dangling reference")
	ErrPersistence       = errors.New("persistence failure")
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// ErrorKind is the stable, collaborator-facing name of a failure.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindEmptyField        ErrorKind = "EmptyField"
	KindNotANumber        ErrorKind = "NotANumber"
	KindAgeOutOfRange     ErrorKind = "AgeOutOfRange"
	KindInvalidEmail      ErrorKind = "InvalidEmail"
	KindDuplicateID       ErrorKind = "DuplicateId"
	KindNotFound          ErrorKind = "NotFound"
	KindDanglingReference ErrorKind = "DanglingReference"
	KindPersistence       ErrorKind = "PersistenceFailure"
	KindUnknown           ErrorKind = "Unknown"
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindEmptyField, ErrEmptyField},
	{KindNotANumber, ErrNotANumber},
	{KindAgeOutOfRange, ErrAgeOutOfRange},
	{KindInvalidEmail, ErrInvalidEmail},
	{KindDuplicateID, ErrDuplicateID},
	{KindNotFound, ErrNotFound},
	{KindDanglingReference, ErrDanglingReference},
	{KindPersistence, ErrPersistence},
}

// KindOf maps err to its ErrorKind. It returns KindNone for nil and KindUnknown
// for errors that do not wrap any domain sentinel.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}

// FieldError reports a validation failure on a single input field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// EntityError reports a failure tied to a specific record.
type EntityError struct {
	Entity EntityType
	ID     string
	Err    error
}

func (e *EntityError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	case errors.Is(e.Err, ErrDuplicateID):
		return fmt.Sprintf("%s %q already exists", e.Entity, e.ID)
	default:
		return fmt.Sprintf("%s %q: %v", e.Entity, e.ID, e.Err)
	}
}

func (e *EntityError) Unwrap() error { return e.Err }

// NotFound builds an EntityError wrapping ErrNotFound.
func NotFound(entity EntityType, id string) error {
	return &EntityError{Entity: entity, ID: id, Err: ErrNotFound}
}

// DuplicateID builds an EntityError wrapping ErrDuplicateID.
func DuplicateID(entity EntityType, id string) error {
	return &EntityError{Entity: entity, ID: id, Err: ErrDuplicateID}
}

// DanglingReference reports that from references a missing target record.
func DanglingReference(from EntityType, fromID string, to EntityType, toID string) error {
	return &EntityError{
		Entity: from,
		ID:     fromID,
		Err:    fmt.Errorf("references missing %s %q: %w", to, toID, ErrDanglingReference),
	}
}

// PersistenceError wraps an I/O or storage-layer fault. The cause is kept
// intact and reachable through errors.Unwrap / errors.As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", ErrPersistence, e.Op, e.Err)
}

// Unwrap exposes the storage-layer cause.
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence in addition to the wrapped cause.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err as a PersistenceError unless it already carries a
// domain kind (constraint violations translated by a backend keep their kind).
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if k := KindOf(err); k != KindUnknown {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
