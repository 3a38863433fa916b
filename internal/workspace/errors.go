package workspace

import (
	"errors"
	"strings"
)

// Error keys reported by the host
const (
	ErrKeyNoResult       = "noResult"
	ErrKeyConnectTimeout = "workspaceConnectTimeout"
	ErrKeyConnectionLost = "connectionLost"
	ErrKeyUnknownMethod  = "unknownMethod"
)

// Error is a failure reported by the workspace host
type Error struct {
	Key     string `json:"key"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Key
	}
	return e.Key + ": " + e.Message
}

// IsNoResult reports whether err means the host had no agent context to answer
// from, which happens when the app runs outside the agent workspace
func IsNoResult(err error) bool {
	if err == nil {
		return false
	}
	var werr *Error
	if errors.As(err, &werr) && werr.Key == ErrKeyNoResult {
		return true
	}
	return strings.Contains(err.Error(), ErrKeyNoResult)
}
