package sign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/ddworken/hishtory-release/internal/artifact"
	"github.com/ddworken/hishtory-release/internal/testutil"
)

// scriptedRunner records every invocation and delegates to an optional
// per-call hook.
type scriptedRunner struct {
	calls [][]string
	hook  func(name string, args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	if r.hook != nil {
		return r.hook(name, args)
	}
	return nil, nil
}

func testConfig(workDir string) Config {
	return Config{
		CertificateP12: []byte("fake p12 bundle"),
		Passphrase:     "hunter2",
		IdentityHash:   "6D4E1575A0D40C370E294916A8390797106C8A6E",
		WorkDir:        workDir,
	}
}

func TestNewOrchestratorValidation(t *testing.T) {
	workDir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing_certificate", func(c *Config) { c.CertificateP12 = nil }},
		{"missing_passphrase", func(c *Config) { c.Passphrase = "" }},
		{"missing_identity", func(c *Config) { c.IdentityHash = "" }},
		{"missing_workdir", func(c *Config) { c.WorkDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(workDir)
			tt.mutate(&cfg)
			if _, err := NewOrchestrator(cfg, &scriptedRunner{}); err == nil {
				t.Error("expected a config validation error")
			}
		})
	}

	if _, err := NewOrchestrator(testConfig(workDir), &scriptedRunner{}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestPrepareKeychainStepOrder(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	runner := &scriptedRunner{}
	o, err := NewOrchestrator(testConfig(workDir), runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := o.PrepareKeychain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSubcommands := []string{
		"create-keychain",
		"default-keychain",
		"unlock-keychain",
		"import",
		"set-key-partition-list",
	}
	if len(runner.calls) != len(wantSubcommands) {
		t.Fatalf("ran %d steps, want %d", len(runner.calls), len(wantSubcommands))
	}
	for i, want := range wantSubcommands {
		if runner.calls[i][0] != "security" || runner.calls[i][1] != want {
			t.Errorf("step %d = %v, want security %s", i, runner.calls[i][:2], want)
		}
	}

	// The certificate must have been materialized for the import step.
	cert, err := os.ReadFile(runner.calls[3][2])
	if err != nil {
		t.Fatalf("certificate file was not written: %v", err)
	}
	if !bytes.Equal(cert, []byte("fake p12 bundle")) {
		t.Error("materialized certificate differs from the configured bundle")
	}
}

func TestPrepareKeychainAbortsOnFirstFailure(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	runner := &scriptedRunner{
		hook: func(name string, args []string) ([]byte, error) {
			if args[0] == "unlock-keychain" {
				return []byte("keychain error"), fmt.Errorf("exit status 1")
			}
			return nil, nil
		},
	}
	o, err := NewOrchestrator(testConfig(workDir), runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = o.PrepareKeychain(context.Background())
	if !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Errorf("ran %d steps after a failure, want 3", len(runner.calls))
	}
	if !strings.Contains(err.Error(), "unlock-keychain") {
		t.Errorf("error should name the failing subcommand: %v", err)
	}
}

func TestPrepareKeychainErrorsNeverLeakPassphrase(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	for _, failing := range []string{"create-keychain", "unlock-keychain", "import", "set-key-partition-list"} {
		runner := &scriptedRunner{
			hook: func(name string, args []string) ([]byte, error) {
				if args[0] == failing {
					return nil, fmt.Errorf("exit status 1")
				}
				return nil, nil
			},
		}
		o, err := NewOrchestrator(testConfig(workDir), runner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = o.PrepareKeychain(context.Background())
		if err == nil {
			t.Fatalf("step %s: expected an error", failing)
		}
		if strings.Contains(err.Error(), "hunter2") {
			t.Errorf("step %s: error leaks the passphrase: %v", failing, err)
		}
	}
}

func TestSignPreservesUnsignedBytes(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	bundle := artifact.NewBundle(workDir, artifact.DarwinArm64)
	testutil.WriteFakeBinary(t, bundle.BinaryPath(), "darwin-arm64 build output")
	original, err := os.ReadFile(bundle.BinaryPath())
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	// The fake codesign mutates the binary in place, like the real one.
	runner := &scriptedRunner{
		hook: func(name string, args []string) ([]byte, error) {
			if strings.HasSuffix(name, "codesign") {
				target := args[3]
				content, err := os.ReadFile(target)
				if err != nil {
					return nil, err
				}
				return nil, os.WriteFile(target, append(content, []byte(" SIGNATURE")...), 0o755)
			}
			return nil, nil
		},
	}
	o, err := NewOrchestrator(testConfig(workDir), runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.PrepareKeychain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unsigned, err := NewUnsigned(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	signed, err := o.Sign(context.Background(), unsigned)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed.Bundle().ID != artifact.DarwinArm64 {
		t.Errorf("signed handle carries wrong artifact %s", signed.Bundle().ID)
	}

	// The sibling holds the exact pre-signing bytes.
	sibling, err := os.ReadFile(bundle.UnsignedPath())
	if err != nil {
		t.Fatalf("unsigned sibling was not written: %v", err)
	}
	if !bytes.Equal(sibling, original) {
		t.Error("unsigned sibling differs from the pre-signing binary")
	}

	// The binary itself was rewritten by codesign.
	after, err := os.ReadFile(bundle.BinaryPath())
	if err != nil {
		t.Fatalf("failed to read signed binary: %v", err)
	}
	if bytes.Equal(after, original) {
		t.Error("binary was not modified by signing")
	}
}

func TestSignArgumentOrder(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	bundle := artifact.NewBundle(workDir, artifact.DarwinAmd64)
	testutil.WriteFakeBinary(t, bundle.BinaryPath(), "payload")

	runner := &scriptedRunner{}
	o, err := NewOrchestrator(testConfig(workDir), runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.PrepareKeychain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unsigned, err := NewUnsigned(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Sign(context.Background(), unsigned); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := runner.calls[len(runner.calls)-1]
	want := []string{"/usr/bin/codesign", "--force", "-s",
		"6D4E1575A0D40C370E294916A8390797106C8A6E", bundle.BinaryPath(), "-v"}
	if len(last) != len(want) {
		t.Fatalf("codesign invocation = %v, want %v", last, want)
	}
	for i := range want {
		if last[i] != want[i] {
			t.Errorf("codesign arg %d = %q, want %q", i, last[i], want[i])
		}
	}
}

func TestSignRefusesExistingSibling(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	bundle := artifact.NewBundle(workDir, artifact.DarwinArm64)
	testutil.WriteFakeBinary(t, bundle.BinaryPath(), "payload")
	testutil.WriteFakeBinary(t, bundle.UnsignedPath(), "earlier run")
	before, _ := os.ReadFile(bundle.UnsignedPath())

	o, err := NewOrchestrator(testConfig(workDir), &scriptedRunner{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.PrepareKeychain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unsigned, err := NewUnsigned(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := o.Sign(context.Background(), unsigned); !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got: %v", err)
	}
	after, _ := os.ReadFile(bundle.UnsignedPath())
	if !bytes.Equal(before, after) {
		t.Error("existing unsigned sibling was overwritten")
	}
}

func TestSignRequiresPreparedKeychain(t *testing.T) {
	workDir := testutil.SetupTestEnv(t)
	bundle := artifact.NewBundle(workDir, artifact.DarwinArm64)
	testutil.WriteFakeBinary(t, bundle.BinaryPath(), "payload")

	o, err := NewOrchestrator(testConfig(workDir), &scriptedRunner{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unsigned, err := NewUnsigned(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Sign(context.Background(), unsigned); !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got: %v", err)
	}
}

func TestNewUnsignedRejectsLinuxArtifacts(t *testing.T) {
	for _, id := range []artifact.ID{artifact.LinuxAmd64, artifact.LinuxArm64, artifact.LinuxArm7} {
		if _, err := NewUnsigned(artifact.NewBundle("/work", id)); err == nil {
			t.Errorf("artifact %s should not be signable", id)
		}
	}
}
