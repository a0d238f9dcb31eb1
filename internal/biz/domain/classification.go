package domain

import (
	"errors"
	"strings"
)

// ClassificationRequest is the input of one relevance classification
type ClassificationRequest struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
}

// Validate checks that both fields carry text
func (r ClassificationRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

// ClassificationResult is the structured judgment returned by the model.
// Field tags drive the JSON schema sent with the request.
type ClassificationResult struct {
	IsRelevant bool   `json:"isRelevant" description:"Whether the message is relevant to the topic of the destination group."`
	Reason     string `json:"reason" description:"The reason for the relevance or irrelevance of the message."`
}

// ClassificationError is the single failure kind of the classifier boundary:
// transport errors, malformed output and timeouts all surface as this type.
type ClassificationError struct {
	Op  string
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Op == "" {
		return "classification failed: " + e.Err.Error()
	}
	return "classification failed: " + e.Op + ": " + e.Err.Error()
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NewClassificationError wraps err unless it already is a ClassificationError
func NewClassificationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return err
	}
	return &ClassificationError{Op: op, Err: err}
}

// IsClassificationError reports whether err came from the classifier boundary
func IsClassificationError(err error) bool {
	var ce *ClassificationError
	return errors.As(err, &ce)
}
