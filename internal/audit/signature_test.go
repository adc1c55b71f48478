package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

// scriptedRunner returns canned output, recording invocations.
type scriptedRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

const goodCodesignReport = `Executable=/release/hishtory-darwin-arm64
Identifier=hishtory-darwin-arm64
Format=Mach-O thin (arm64)
Authority=Developer ID Application: David Dworken (QUXLNCT7FA)
Authority=Developer ID Certification Authority
Authority=Apple Root CA
TeamIdentifier=QUXLNCT7FA
`

func foundLookPath(file string) (string, error) { return "/usr/bin/" + file, nil }

func TestSignatureAuditPass(t *testing.T) {
	runner := &scriptedRunner{output: []byte(goodCodesignReport)}
	a := NewSignatureAuditor(runner, Identity{})
	a.lookPath = foundLookPath

	result, err := a.Audit(context.Background(), "/release/hishtory-darwin-arm64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != artifact.StatusPass {
		t.Errorf("status = %s, want pass", result.Status)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("ran %d commands, want 1", len(runner.calls))
	}
	call := runner.calls[0]
	if call[0] != "codesign" || call[1] != "-dv" || call[2] != "--verbose=4" {
		t.Errorf("unexpected codesign invocation: %v", call)
	}
}

func TestSignatureAuditEachChainLineIsIndependent(t *testing.T) {
	lines := []struct {
		name string
		want string
	}{
		{"signer", "Authority=Developer ID Application: David Dworken (QUXLNCT7FA)"},
		{"intermediate_ca", "Authority=Developer ID Certification Authority"},
		{"root_ca", "Authority=Apple Root CA"},
		{"team_id", "TeamIdentifier=QUXLNCT7FA"},
	}

	for _, omit := range lines {
		t.Run("missing_"+omit.name, func(t *testing.T) {
			report := strings.ReplaceAll(goodCodesignReport, omit.want+"\n", "")
			runner := &scriptedRunner{output: []byte(report)}
			a := NewSignatureAuditor(runner, Identity{})
			a.lookPath = foundLookPath

			result, err := a.Audit(context.Background(), "/release/hishtory-darwin-arm64")
			if !errors.Is(err, ErrSignatureMismatch) {
				t.Fatalf("expected ErrSignatureMismatch, got: %v", err)
			}
			if result.Status != artifact.StatusFail {
				t.Errorf("status = %s, want fail", result.Status)
			}
			if !strings.Contains(err.Error(), omit.want) {
				t.Errorf("error should name the missing line %q: %v", omit.want, err)
			}
		})
	}
}

func TestSignatureAuditReportsAllMissingLines(t *testing.T) {
	runner := &scriptedRunner{output: []byte("Executable=/release/hishtory-darwin-arm64\n")}
	a := NewSignatureAuditor(runner, Identity{})
	a.lookPath = foundLookPath

	_, err := a.Audit(context.Background(), "/release/hishtory-darwin-arm64")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got: %v", err)
	}
	for _, want := range []string{
		DefaultIdentity.Signer,
		DefaultIdentity.IntermediateCA,
		DefaultIdentity.RootCA,
		DefaultIdentity.TeamID,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should report missing line %q", want)
		}
	}
}

func TestSignatureAuditUnsignedBinary(t *testing.T) {
	runner := &scriptedRunner{
		output: []byte("hishtory-darwin-arm64: code object is not signed at all"),
		err:    fmt.Errorf("exit status 1"),
	}
	a := NewSignatureAuditor(runner, Identity{})
	a.lookPath = foundLookPath

	result, err := a.Audit(context.Background(), "/release/hishtory-darwin-arm64")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got: %v", err)
	}
	if result.Status != artifact.StatusFail {
		t.Errorf("status = %s, want fail", result.Status)
	}
	if !strings.Contains(err.Error(), "not signed at all") {
		t.Errorf("error should carry the codesign output: %v", err)
	}
}

func TestSignatureAuditToolingUnavailable(t *testing.T) {
	runner := &scriptedRunner{}
	a := NewSignatureAuditor(runner, Identity{})
	a.lookPath = func(file string) (string, error) {
		return "", fmt.Errorf("executable file not found in $PATH")
	}

	result, err := a.Audit(context.Background(), "/release/hishtory-darwin-arm64")
	if !errors.Is(err, ErrToolingUnavailable) {
		t.Fatalf("expected ErrToolingUnavailable, got: %v", err)
	}
	if result.Status != artifact.StatusInconclusive {
		t.Errorf("status = %s, want inconclusive: the signature was never inspected", result.Status)
	}
	if len(runner.calls) != 0 {
		t.Error("codesign must not run when it is not on PATH")
	}
}

func TestSignatureAuditCustomIdentity(t *testing.T) {
	custom := Identity{
		Signer:         "Authority=Developer ID Application: Example Corp (ABCDE12345)",
		IntermediateCA: "Authority=Developer ID Certification Authority",
		RootCA:         "Authority=Apple Root CA",
		TeamID:         "TeamIdentifier=ABCDE12345",
	}
	report := custom.Signer + "\n" + custom.IntermediateCA + "\n" + custom.RootCA + "\n" + custom.TeamID + "\n"
	runner := &scriptedRunner{output: []byte(report)}
	a := NewSignatureAuditor(runner, custom)
	a.lookPath = foundLookPath

	if _, err := a.Audit(context.Background(), "/release/binary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
