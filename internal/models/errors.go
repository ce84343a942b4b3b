package models

import (
	"errors"
	"fmt"
)

var (
	// general errors.
	ErrEmptyURL   = errors.New("URL cannot be empty")
	ErrEmptyToken = errors.New("token cannot be empty")

	// connection errors.
	ErrNoConnectionToWriteTo = errors.New("no connection to write to")
	ErrConnectionClosed      = errors.New("connection closed")
	ErrAuthInvalid           = errors.New("access token rejected")
	ErrCommandTimeout        = errors.New("no response received in time")

	// home assistant errors.
	ErrNoStatesReceived      = errors.New("no states received")
	ErrUnexpectedMessageType = errors.New("unexpected message type")
	ErrUnexpectedStatus      = errors.New("unexpected http status")

	// entity errors.
	ErrEmptyEntityID   = errors.New("empty entity id")
	ErrInvalidEntityID = errors.New("invalid entity id")

	// widget errors.
	ErrUnknownWidgetType = errors.New("unknown widget type")
)

// InvalidEntityIDErr wraps ErrInvalidEntityID with the offending id.
func InvalidEntityIDErr(rawEntityID string) error {
	return fmt.Errorf("%w: %s", ErrInvalidEntityID, rawEntityID)
}

// EmptyEntityIDErr returns ErrEmptyEntityID.
func EmptyEntityIDErr() error {
	return fmt.Errorf("%w", ErrEmptyEntityID)
}
