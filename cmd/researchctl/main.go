package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitResearchFailed = 1 // The task ran and ended in the failed state
	ExitError          = 2 // Configuration or runtime error
)

// ResearchFailedError reports a task that finished as failed
type ResearchFailedError struct {
	TaskID  string
	Message string
}

func (e *ResearchFailedError) Error() string {
	return fmt.Sprintf("research task %s failed: %s", e.TaskID, e.Message)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var failed *ResearchFailedError
		if errors.As(err, &failed) {
			os.Exit(ExitResearchFailed)
		}
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
