package pipeline

import (
	"fmt"
	"strings"
)

// InputError rejects a request before any work is done.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

// RenderFailure is returned when no moment could be rendered.
type RenderFailure struct {
	Errors []string
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("all %d renders failed: %s", len(e.Errors), strings.Join(e.Errors, "; "))
}
