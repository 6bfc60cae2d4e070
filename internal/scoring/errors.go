package scoring

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes rejected engine calls.
type ErrorCode string

const (
	// CodeMatchAlreadyDecided rejects any mutation of a match with a winner.
	CodeMatchAlreadyDecided ErrorCode = "MATCH_ALREADY_DECIDED"

	// CodeNothingToUndo rejects a correction when the side has no point to take back.
	CodeNothingToUndo ErrorCode = "NOTHING_TO_UNDO"

	// CodeInvalidState rejects input that breaks the MatchScore invariants.
	CodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error is the typed outcome of a rejected operation. Two errors are equal
// under errors.Is when their codes match, so callers compare against the
// Err* sentinels regardless of the message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMatchAlreadyDecided = &Error{Code: CodeMatchAlreadyDecided, Message: "match already decided"}
	ErrNothingToUndo       = &Error{Code: CodeNothingToUndo, Message: "nothing to undo"}
	ErrInvalidState        = &Error{Code: CodeInvalidState, Message: "invalid match state"}
)

// CodeOf extracts the engine error code from err, or "" when err did not
// come from the engine.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func alreadyDecided(winner Side) *Error {
	return &Error{
		Code:    CodeMatchAlreadyDecided,
		Message: fmt.Sprintf("match already won by side %s", winner),
	}
}

func nothingToUndo(side Side) *Error {
	return &Error{
		Code:    CodeNothingToUndo,
		Message: fmt.Sprintf("side %s has no point to take back", side),
	}
}

func invalidState(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf(format, args...),
	}
}
