package workspace

import (
	"fmt"
	"time"
)

// Level classifies a status message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Status is a transient message for the user.
type Status struct {
	Message string    `json:"message"`
	Level   Level     `json:"level"`
	At      time.Time `json:"at"`
}

func (s Status) String() string {
	return fmt.Sprintf("[%s] %s", s.Level, s.Message)
}

// PreconditionError is an action invoked without the state it needs.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// previewLen is the snippet length quoted in the save confirmation.
const previewLen = 50

func preview(snippet string) string {
	r := []rune(snippet)
	if len(r) <= previewLen {
		return snippet
	}
	return string(r[:previewLen]) + "..."
}
