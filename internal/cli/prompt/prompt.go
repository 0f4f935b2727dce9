// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt errors to ErrAborted for consistent handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Prompter asks the questions of interactive commands. Terminal is the
// real implementation; tests script the answers.
type Prompter interface {
	Input(label, defaultValue string) (string, error)
	InputRequired(label string, validate func(string) error) (string, error)
	InputPort(label string, defaultValue int) (int, error)
	Password(label string) (string, error)
	Confirm(label string, defaultYes bool) (bool, error)
	Select(label string, options []SelectOption) (string, error)
}

// Terminal prompts on the controlling terminal through promptui.
type Terminal struct{}

var _ Prompter = Terminal{}
