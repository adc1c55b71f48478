package audit

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

var (
	// ErrToolingUnavailable indicates the signing-inspection tool is not
	// present on this host.
	ErrToolingUnavailable = errors.New("codesign tool not available")

	// ErrSignatureMismatch indicates the inspection output is missing an
	// expected identity or authority line. Each missing line is reported
	// as its own wrapped error.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Identity describes the signing identity and certificate chain every
// darwin artifact must carry: the developer identity, the intermediate
// and root certificate authorities, and the team identifier.
type Identity struct {
	Signer         string
	IntermediateCA string
	RootCA         string
	TeamID         string
}

// DefaultIdentity is the release signing identity.
var DefaultIdentity = Identity{
	Signer:         "Authority=Developer ID Application: David Dworken (QUXLNCT7FA)",
	IntermediateCA: "Authority=Developer ID Certification Authority",
	RootCA:         "Authority=Apple Root CA",
	TeamID:         "TeamIdentifier=QUXLNCT7FA",
}

// SignatureAuditor independently re-verifies signed darwin binaries.
// It runs after the signing orchestrator and shares nothing with it, so
// a signer that reports success under the wrong identity is still
// caught here.
type SignatureAuditor struct {
	runner   Runner
	identity Identity
	lookPath func(file string) (string, error)
}

// NewSignatureAuditor creates a signature auditor. A zero identity
// selects DefaultIdentity.
func NewSignatureAuditor(runner Runner, identity Identity) *SignatureAuditor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if identity == (Identity{}) {
		identity = DefaultIdentity
	}
	return &SignatureAuditor{
		runner:   runner,
		identity: identity,
		lookPath: exec.LookPath,
	}
}

// Audit inspects the signature on the binary at path and requires the
// full expected chain to appear in the verbose codesign report. Every
// missing line is a distinct failure; they are reported together rather
// than collapsed into one generic mismatch.
func (a *SignatureAuditor) Audit(ctx context.Context, path string) (*artifact.VerificationResult, error) {
	if _, err := a.lookPath("codesign"); err != nil {
		return artifact.Inconclusive("signature", "codesign not found on PATH"),
			fmt.Errorf("%w: %v", ErrToolingUnavailable, err)
	}

	out, err := a.runner.Run(ctx, "codesign", "-dv", "--verbose=4", path)
	if err != nil {
		return artifact.Fail("signature", "codesign inspection failed"),
			fmt.Errorf("%w: codesign -dv %s: %v: %s", ErrSignatureMismatch, path, err, out)
	}

	report := string(out)
	checks := []struct {
		name string
		want string
	}{
		{"signer identity", a.identity.Signer},
		{"intermediate CA", a.identity.IntermediateCA},
		{"root CA", a.identity.RootCA},
		{"team identifier", a.identity.TeamID},
	}

	var missing []string
	var errs []error
	for _, c := range checks {
		if !strings.Contains(report, c.want) {
			missing = append(missing, c.name)
			errs = append(errs, fmt.Errorf("%w: output missing %s line %q", ErrSignatureMismatch, c.name, c.want))
		}
	}
	if len(errs) > 0 {
		return artifact.Fail("signature", "missing "+strings.Join(missing, ", ")), errors.Join(errs...)
	}

	return artifact.Pass("signature"), nil
}
