package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Every client-caused validation failure wraps it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a vector does not match the
	// dimension of the course index it is written to or searched in.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or
	// returned an unusable response.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the upstream chat provider failed.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Validation Errors.

	// ErrUnsupportedFile indicates an upload that is not a PDF.
	ErrUnsupportedFile = fmt.Errorf("%w: only .pdf files are supported", ErrInvalidInput)

	// ErrExtractionFailed indicates the extractor could not read text from the file.
	ErrExtractionFailed = fmt.Errorf("%w: could not extract text from file", ErrInvalidInput)

	// ErrEmptyText indicates the file contained no extractable text.
	ErrEmptyText = fmt.Errorf("%w: no extractable text found", ErrInvalidInput)

	// ErrMissingCourse indicates no course could be resolved for a request.
	ErrMissingCourse = fmt.Errorf("%w: Missing course_id (pick a course model, use ?course_id=, "+
		"X-Loom-Course header, loom.course_id, or include [course:ID] in your message)", ErrInvalidInput)

	// ErrNoUserMessage indicates a chat request without any user message.
	ErrNoUserMessage = fmt.Errorf("%w: No user message provided.", ErrInvalidInput)
)

// ValidationMessage returns the client-facing part of a validation error,
// without the leading "invalid input: " class marker.
func ValidationMessage(err error) string {
	msg := err.Error()
	prefix := ErrInvalidInput.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
