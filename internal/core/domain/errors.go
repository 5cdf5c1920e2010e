package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// Typed errors below match these sentinels through errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a bad request shape or bad configuration.
	// It is fixable by the user or operator and never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientProvider indicates a provider timeout, rate limit or outage.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrContentPolicy indicates the generation provider refused the request.
	ErrContentPolicy = errors.New("content policy refusal")

	// ErrIndexIntegrity indicates a dimension, metric or model-version mismatch.
	ErrIndexIntegrity = errors.New("index integrity violation")

	// ErrEmbeddingProvider indicates the embedder could not produce vectors.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrNoEvidence indicates a prompt was requested without evidence.
	ErrNoEvidence = errors.New("no evidence to build prompt from")

	// ErrUnsupportedType indicates an unknown provider or backend name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// InvalidInputError describes which field was rejected and why.
type InvalidInputError struct {
	Field  string
	Reason string
}

// NewInvalidInput builds an InvalidInputError with a formatted reason.
func NewInvalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// TransientProviderError is a retriable provider failure.
type TransientProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	// RetryAfter is the provider's requested wait, zero if none was given.
	RetryAfter time.Duration
	Err        error
}

func (e *TransientProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: transient failure", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrTransientProvider.
func (e *TransientProviderError) Is(target error) bool {
	return target == ErrTransientProvider
}

func (e *TransientProviderError) Unwrap() error {
	return e.Err
}

// ContentPolicyError is a non-retriable refusal by the generation provider.
type ContentPolicyError struct {
	Provider string
	Reason   string
}

func (e *ContentPolicyError) Error() string {
	return fmt.Sprintf("%s: content policy refusal: %s", e.Provider, e.Reason)
}

// Is reports whether target is ErrContentPolicy.
func (e *ContentPolicyError) Is(target error) bool {
	return target == ErrContentPolicy
}

// IndexIntegrityError blocks a write or collection creation that would
// corrupt a collection.
type IndexIntegrityError struct {
	Collection string
	Reason     string
}

func (e *IndexIntegrityError) Error() string {
	return fmt.Sprintf("collection %q: %s", e.Collection, e.Reason)
}

// Is reports whether target is ErrIndexIntegrity.
func (e *IndexIntegrityError) Is(target error) bool {
	return target == ErrIndexIntegrity
}

// EmbeddingProviderError is returned by the embedder when a provider call
// fails after local retries. It unwraps to the provider error, so a
// retriable cause still matches ErrTransientProvider.
type EmbeddingProviderError struct {
	Model string
	Err   error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embed with %s: %v", e.Model, e.Err)
}

// Is reports whether target is ErrEmbeddingProvider.
func (e *EmbeddingProviderError) Is(target error) bool {
	return target == ErrEmbeddingProvider
}

func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

// Retriable reports whether the underlying failure was transient.
func (e *EmbeddingProviderError) Retriable() bool {
	return errors.Is(e.Err, ErrTransientProvider)
}

// IsTransient reports whether err is a retriable provider failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

// IsContentPolicy reports whether err is a content policy refusal.
func IsContentPolicy(err error) bool {
	return errors.Is(err, ErrContentPolicy)
}
