package domain

import "errors"

var (
	// ErrInvalidFormat is returned when an email is not syntactically valid.
	ErrInvalidFormat = errors.New("invalid email format")
	// ErrWrongDomain is returned when a valid email does not belong to the allowed domain.
	ErrWrongDomain = errors.New("email domain not allowed")
	// ErrMalformedEmail indicates an email without a local-part separator.
	ErrMalformedEmail = errors.New("malformed email")
	// ErrDuplicateEmail means a similar email already completed the quiz.
	ErrDuplicateEmail = errors.New("a similar email already responded")
	// ErrStoreUnavailable wraps transport or query failures from the record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrSaveFailed is returned when a response could not be persisted.
	ErrSaveFailed = errors.New("save failed")
	// ErrUniqueViolation is surfaced by record stores when the email uniqueness constraint fires.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrInvalidAnswer indicates an answer outside the Likert scale.
	ErrInvalidAnswer = errors.New("answer out of range")
	// ErrInvalidStep is returned when a command does not apply to the session's current step.
	ErrInvalidStep = errors.New("command not allowed in current step")
	// ErrSessionBlocked is returned for any command other than reset on a blocked session.
	ErrSessionBlocked = errors.New("session is blocked")
	// ErrSessionNotFound is returned when a quiz session does not exist or expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidContent indicates quiz content that cannot drive the flow.
	ErrInvalidContent = errors.New("invalid quiz content")
)
