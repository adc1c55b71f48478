// Package audit re-verifies released artifacts independently of the
// steps that produced them.
//
// Three auditors exist: the signature auditor re-checks a signed darwin
// binary's certificate chain with codesign, the attestation auditor
// drives the verifier embedded in the released binary, and the runtime
// metadata auditor checks the binary's self-reported build identifiers.
// All three shell out through the Runner seam so they can be exercised
// with scripted output instead of real tools.
package audit

import (
	"context"
	"os/exec"
)

// Runner executes an external tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as real processes.
type ExecRunner struct{}

// Run executes name with args and returns its combined stdout/stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
