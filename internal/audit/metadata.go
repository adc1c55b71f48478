package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

// ErrReleaseMismatch indicates the binary's self-reported build
// identifiers do not match the expected release.
var ErrReleaseMismatch = errors.New("release metadata mismatch")

// productLine prefixes the version line of the binary's status report
// and doubles as the product identifier for lenient audits.
const productLine = "hiSHtory: "

// Release holds the expected build identifiers for strict runtime
// metadata audits.
type Release struct {
	// CommitHash is the commit the release was built from, usually the
	// CI-provided SHA.
	CommitHash string
	// Version is the full expected version string, e.g. "v0.295"
	// (the VERSION file content prefixed with "v0.").
	Version string
}

// MetadataAuditor runs an artifact's verbose status report and checks
// what the binary says about itself.
type MetadataAuditor struct {
	runner Runner
}

// NewMetadataAuditor creates a runtime metadata auditor.
func NewMetadataAuditor(runner Runner) *MetadataAuditor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &MetadataAuditor{runner: runner}
}

// Audit makes the binary executable and runs `status -v`. Strict audits
// require the exact expected commit hash and version string; lenient
// audits only require that the product identifies itself at all, as an
// installation smoke test.
func (a *MetadataAuditor) Audit(ctx context.Context, binaryPath string, strict bool, expected Release) (*artifact.VerificationResult, error) {
	if !artifact.Exists(binaryPath) {
		return artifact.Inconclusive("metadata", binaryPath+" does not exist"),
			fmt.Errorf("%w: %s does not exist", ErrMissingInput, binaryPath)
	}
	if err := os.Chmod(binaryPath, 0o755); err != nil {
		return artifact.Inconclusive("metadata", err.Error()),
			fmt.Errorf("make binary executable: %w", err)
	}

	out, err := a.runner.Run(ctx, binaryPath, "status", "-v")
	if err != nil {
		return artifact.Fail("metadata", "status command failed"),
			fmt.Errorf("%w: %s status -v: %v, output:\n%s", ErrReleaseMismatch, binaryPath, err, out)
	}
	report := string(out)

	if !strict {
		if !strings.Contains(report, productLine) {
			return artifact.Fail("metadata", "status report does not identify the product"),
				fmt.Errorf("%w: status report does not contain %q, output:\n%s", ErrReleaseMismatch, productLine, out)
		}
		return artifact.Pass("metadata"), nil
	}

	if expected.CommitHash == "" || expected.Version == "" {
		return artifact.Inconclusive("metadata", "expected commit hash and version are required for a strict audit"),
			fmt.Errorf("%w: expected commit hash and version are required for a strict audit", ErrMissingInput)
	}

	wantCommit := "Commit Hash: " + expected.CommitHash
	if !strings.Contains(report, wantCommit) {
		return artifact.Fail("metadata", "commit hash mismatch"),
			fmt.Errorf("%w: status report missing %q, output:\n%s", ErrReleaseMismatch, wantCommit, out)
	}
	wantVersion := productLine + expected.Version
	if !strings.Contains(report, wantVersion) {
		return artifact.Fail("metadata", "version mismatch"),
			fmt.Errorf("%w: status report missing %q, output:\n%s", ErrReleaseMismatch, wantVersion, out)
	}

	return artifact.Pass("metadata"), nil
}
