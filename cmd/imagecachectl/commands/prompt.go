package commands

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// errAborted is returned when the user interrupts a confirmation prompt.
var errAborted = errors.New("aborted")

// confirm prompts for yes/no confirmation before a destructive operation,
// or returns true immediately when force is set.
func confirm(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, errAborted
		}
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
