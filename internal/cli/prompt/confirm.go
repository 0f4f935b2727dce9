package prompt

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm prompts the user for yes/no confirmation. Empty input selects
// the default. Returns ErrAborted if the user presses Ctrl+C.
func (Terminal) Confirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	prompt := promptui.Prompt{
		Label: fmt.Sprintf("%s [%s]", label, defaultStr),
		Validate: func(input string) error {
			if _, ok := parseYesNo(input, defaultYes); !ok {
				return fmt.Errorf("answer y or n")
			}
			return nil
		},
	}

	result, err := prompt.Run()
	if err != nil {
		return false, wrapError(err)
	}
	answer, _ := parseYesNo(result, defaultYes)
	return answer, nil
}

// parseYesNo interprets a confirmation answer.
func parseYesNo(input string, defaultYes bool) (answer bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return defaultYes, true
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}

// ConfirmWithForce returns true immediately if force is true,
// otherwise prompts for confirmation.
func ConfirmWithForce(p Prompter, label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return p.Confirm(label, false)
}
