package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoChoice is returned when a prompt answer matches none of its
	// options.
	ErrNoChoice = errors.New("tui: no option selected")
)
