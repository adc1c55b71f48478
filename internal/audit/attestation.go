package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

var (
	// ErrMissingInput indicates a file the attestation audit needs does
	// not exist. Distinct from ErrAttestationFailed: the verifier never
	// ran.
	ErrMissingInput = errors.New("missing verification input")

	// ErrAttestationFailed indicates the verifier ran and did not fully
	// acknowledge the artifact.
	ErrAttestationFailed = errors.New("attestation verification failed")
)

// Acknowledgment phrases the embedded verifier prints on success. Both
// must appear: one proves the artifact matches a transparency-log
// record, the other that the expected builder produced it.
const (
	tlogPhrase    = "Verified signature against tlog entry"
	builderPhrase = "Verified build using builder"
)

// AttestationAuditor validates artifacts against their SLSA
// attestations by driving the verifier embedded in a trusted released
// binary: `<verifier> validate-binary <artifact> <attestation>`.
type AttestationAuditor struct {
	runner       Runner
	verifierPath string
}

// NewAttestationAuditor creates an attestation auditor that invokes the
// binary at verifierPath.
func NewAttestationAuditor(runner Runner, verifierPath string) *AttestationAuditor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &AttestationAuditor{runner: runner, verifierPath: verifierPath}
}

// Audit verifies one artifact bundle. The binary and attestation must
// exist, plus the unsigned sibling for darwin artifacts — the
// attestation covers the pre-signing bytes, so the verifier needs the
// sibling to confirm the signed binary is a signed version of the exact
// attested artifact. A missing file is never silently skipped.
func (a *AttestationAuditor) Audit(ctx context.Context, b artifact.Bundle) (*artifact.VerificationResult, error) {
	required := []string{b.BinaryPath(), b.AttestationPath()}
	if b.ID.IsDarwin() {
		required = append(required, b.UnsignedPath())
	}
	for _, path := range required {
		if !artifact.Exists(path) {
			return artifact.Inconclusive("attestation", path+" does not exist"),
				fmt.Errorf("%w: %s does not exist", ErrMissingInput, path)
		}
	}

	args := []string{"validate-binary", b.BinaryPath(), b.AttestationPath()}
	if b.ID.IsDarwin() {
		args = append(args, "--is_macos=True", "--macos_unsigned_binary="+b.UnsignedPath())
	}

	out, err := a.runner.Run(ctx, a.verifierPath, args...)
	if err != nil {
		// Surface the verifier's full output; it names which check
		// inside the verifier rejected the artifact.
		return artifact.Fail("attestation", "verifier exited with error"),
			fmt.Errorf("%w: verifier exited with error: %v, output:\n%s", ErrAttestationFailed, err, out)
	}

	report := string(out)
	for _, phrase := range []string{tlogPhrase, builderPhrase} {
		if !strings.Contains(report, phrase) {
			return artifact.Fail("attestation", "verifier output missing "+fmt.Sprintf("%q", phrase)),
				fmt.Errorf("%w: verifier output missing %q, output:\n%s", ErrAttestationFailed, phrase, out)
		}
	}

	return artifact.Pass("attestation"), nil
}
