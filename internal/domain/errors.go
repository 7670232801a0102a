package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuestion is returned when a blank question is submitted.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrIndexNotFound is returned when a persistent index has not been built yet.
	ErrIndexNotFound = errors.New("vector index not found")
)

// ConfigurationError lists every problem found while validating startup configuration.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// DocumentLoadError reports a missing, unreadable or empty ingestion source.
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load document %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// ExternalServiceError reports a failing embedder, vector store or model endpoint.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError unless it already is one.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// UserMessage renders err as the German message both UIs show.
func UserMessage(err error) string {
	if errors.Is(err, ErrIndexNotFound) {
		return "Ein Fehler ist aufgetreten: Die Wissensdatenbank wurde noch nicht aufgebaut."
	}
	if errors.Is(err, ErrEmptyQuestion) {
		return "Bitte geben Sie eine Frage ein."
	}
	return "Ein Fehler ist aufgetreten: " + err.Error()
}
