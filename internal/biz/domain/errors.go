package domain

import "errors"

var (
	// ErrEmptyMessage is returned when the operator sends blank text
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrEmptyTopic is returned when the operator sets a blank topic
	ErrEmptyTopic = errors.New("topic is empty")
	// ErrConnectionBusy is returned when a connection is already switching
	ErrConnectionBusy = errors.New("connection is switching")
	// ErrUnknownConnection is returned for a side other than source/destination
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrTickSkipped is returned when a tick did no work
	ErrTickSkipped = errors.New("tick skipped")
	// ErrClassifierNotConfigured is returned when no model credentials are set
	ErrClassifierNotConfigured = errors.New("classifier not configured")
)
