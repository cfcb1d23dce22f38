package domain

import "errors"

var (
	// ErrDataUnavailable is returned when reference data (questions, categories) cannot be fetched.
	ErrDataUnavailable = errors.New("reference data unavailable")
	// ErrValidation marks a malformed answer or a missing required field.
	ErrValidation = errors.New("validation failed")
	// ErrPersistenceUnavailable indicates local durable storage is disabled or full.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrNetworkDegraded indicates a backend round-trip failed.
	ErrNetworkDegraded = errors.New("network degraded")

	// ErrInvalidAnswerType is returned for an answerType outside the known set.
	ErrInvalidAnswerType = errors.New("invalid answer type")
	// ErrPhoneRequired is returned when a submission or lookup carries no phone.
	ErrPhoneRequired = errors.New("phone number is required")
	// ErrAnswersRequired is returned when a submission carries no answers.
	ErrAnswersRequired = errors.New("answers are required")
	// ErrQuestionNotFound indicates a referenced question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidFileType is returned for uploads that are not images.
	ErrInvalidFileType = errors.New("invalid file type, only images are allowed")
)
