package sign

import (
	"context"
	"os/exec"
)

// Runner executes an external tool and returns its combined output.
// Tests substitute a scripted implementation so the orchestration logic
// runs without real certificates or keychains.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as real processes.
type ExecRunner struct{}

// Run executes name with args and returns its combined stdout/stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
