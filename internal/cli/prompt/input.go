package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// Input prompts for text input.
func (Terminal) Input(label string, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputRequired prompts until a non-empty value passes validate. A nil
// validate only checks for emptiness.
func (Terminal) InputRequired(label string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			input = strings.TrimSpace(input)
			if input == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			if validate != nil {
				return validate(input)
			}
			return nil
		},
	}

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputPort prompts for a network port with validation (1-65535).
func (Terminal) InputPort(label string, defaultValue int) (int, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  strconv.Itoa(defaultValue),
		Validate: ValidatePort,
	}

	result, err := prompt.Run()
	if err != nil {
		return 0, wrapError(err)
	}

	value, _ := strconv.Atoi(strings.TrimSpace(result)) // Already validated
	return value, nil
}

// ValidatePort accepts decimal ports from 1 to 65535.
func ValidatePort(input string) error {
	port, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be a valid port (1-65535)")
	}
	return nil
}

// Password prompts for a password input with masking. Empty input is allowed.
func (Terminal) Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}
