package sdk

import (
	"errors"
	"fmt"
)

var (
	ErrInitInProgress     = errors.New("sdk initialization in progress")
	ErrConnectionFailed   = errors.New("workspace connection failed; destroy the manager before retrying")
	ErrOutboundNotAllowed = errors.New("outbound call not allowed")

	// ErrNotInWorkspace replaces the host's noResult answer to agent state changes
	ErrNotInWorkspace = errors.New("not connected to Amazon Connect CCP. This app must be embedded in Amazon Connect Agent Workspace to change agent state")
)

// NotInitializedError is returned when the client backing a call does not exist
type NotInitializedError struct {
	Client string
}

func (e *NotInitializedError) Error() string {
	return e.Client + " not initialized"
}

// ValidationError rejects input before anything is sent to the host
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsNotInitialized reports whether err is a NotInitializedError
func IsNotInitialized(err error) bool {
	var target *NotInitializedError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
