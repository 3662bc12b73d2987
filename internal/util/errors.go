package util

import "errors"

var (
	ErrNoActiveSession       = errors.New("no active test session")
	ErrSessionNotComplete    = errors.New("test session is not complete")
	ErrSessionComplete       = errors.New("test session already complete")
	ErrInsufficientQuestions = errors.New("not enough questions for this level")
	ErrInvalidAnswerLabel    = errors.New("answer label not present on this question")
	ErrStaleAnswer           = errors.New("answer refers to an already advanced question")
	ErrInvalidQuestionFormat = errors.New("invalid question format")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrPersistenceFailure    = errors.New("storage unavailable")
	ErrUserNotFound          = errors.New("user not found")
)
