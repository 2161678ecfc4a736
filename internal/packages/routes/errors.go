package routes

import (
	"fmt"
	"strings"
)

// ConfigError is a route entry that cannot be compiled: a bad value shape or an
// unparsable path.
type ConfigError struct {
	Key    string
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("mock value of %q (%s): %v", e.Key, e.Source, e.Err)
	}

	return fmt.Sprintf("mock value of %q: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ReloadError collects every error of one failed compilation.
type ReloadError struct {
	Errors []error
}

func (e *ReloadError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("%d invalid mock route(s): %s", len(e.Errors), strings.Join(messages, "; "))
}

func (e *ReloadError) Unwrap() []error {
	return e.Errors
}
