package tidesdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error into the taxonomy every public entry point
// can surface. Callers switch on Kind rather than on message text.
type Kind int

const (
	KindUnknown Kind = iota

	// Argument errors
	KindNullArg
	KindNameTooShort
	KindThresholdTooLow
	KindLevelTooLow
	KindProbabilityTooLow
	KindThreadsTooLow

	// Resource errors
	KindOutOfMemory
	KindDirCreateFailed
	KindFileOpenFailed
	KindIOFailed

	// State errors
	KindCFNotFound
	KindCFExists
	KindNotEnoughSSTablesToCompact
	KindAtStartOfCursor
	KindAtEndOfCursor

	// Data errors
	KindSerializationFailed
	KindDeserializationFailed
	KindBloomReadFailed

	// Lookup errors
	KindKeyNotFound
	KindKeyTombstoned
	KindKeyExpired

	// Lifecycle errors
	KindLockInitFailed
	KindThreadSpawnFailed
	KindWALReplayFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                    "unknown",
	KindNullArg:                    "null_arg",
	KindNameTooShort:               "name_too_short",
	KindThresholdTooLow:            "threshold_too_low",
	KindLevelTooLow:                "level_too_low",
	KindProbabilityTooLow:          "probability_too_low",
	KindThreadsTooLow:              "threads_too_low",
	KindOutOfMemory:                "out_of_memory",
	KindDirCreateFailed:            "dir_create_failed",
	KindFileOpenFailed:             "file_open_failed",
	KindIOFailed:                   "io_failed",
	KindCFNotFound:                 "cf_not_found",
	KindCFExists:                   "cf_exists",
	KindNotEnoughSSTablesToCompact: "not_enough_sstables_to_compact",
	KindAtStartOfCursor:            "at_start_of_cursor",
	KindAtEndOfCursor:              "at_end_of_cursor",
	KindSerializationFailed:        "serialization_failed",
	KindDeserializationFailed:      "deserialization_failed",
	KindBloomReadFailed:            "bloom_read_failed",
	KindKeyNotFound:                "key_not_found",
	KindKeyTombstoned:              "key_tombstoned",
	KindKeyExpired:                 "key_expired",
	KindLockInitFailed:             "lock_init_failed",
	KindThreadSpawnFailed:          "thread_spawn_failed",
	KindWALReplayFailed:            "wal_replay_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the engine's single public error type. Code is a stable
// numeric identifier for Kind (1:1, assigned below) suitable for
// logging or cross-process reporting; Message is human-readable
// context. Cause, if present, carries the original wrapped error with
// a stack trace attached by pkg/errors.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("tidesdb: %s (%s): %v", e.Message, e.Kind, e.cause)
	}
	return fmt.Sprintf("tidesdb: %s (%s)", e.Message, e.Kind)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// newErr constructs an Error with a stack trace attached via
// pkg/errors, with no further cause.
func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: int(kind), Message: message, cause: errors.New(message)}
}

// wrapErr constructs an Error wrapping cause with a stack trace.
func wrapErr(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return newErr(kind, message)
	}
	return &Error{Kind: kind, Code: int(kind), Message: message, cause: errors.WithStack(cause)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
