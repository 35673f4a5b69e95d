package headless

import (
	"context"
	"fmt"
	"os"
)

// Run executes a single prompt in headless mode. This is the main entry
// point for CLI execution.
func Run(ctx context.Context, sessionID, prompt string, fileIDs []string) error {
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty in headless mode")
	}

	runner := newRunner(os.Stdout)
	if err := runner.run(ctx, sessionID, prompt, fileIDs); err != nil {
		return fmt.Errorf("failed to execute prompt: %w", err)
	}
	return nil
}
