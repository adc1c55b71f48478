package sign

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

const codesignPath = "/usr/bin/codesign"

// Orchestrator materializes the signing certificate into a run-scoped
// keychain and signs darwin binaries with it.
type Orchestrator struct {
	cfg      Config
	runner   Runner
	prepared bool
}

// NewOrchestrator creates a signing orchestrator. The runner defaults
// to real process execution.
func NewOrchestrator(cfg Config, runner Runner) (*Orchestrator, error) {
	if len(cfg.CertificateP12) == 0 {
		return nil, fmt.Errorf("certificate bundle is required")
	}
	if cfg.Passphrase == "" {
		return nil, fmt.Errorf("certificate passphrase is required")
	}
	if cfg.IdentityHash == "" {
		return nil, fmt.Errorf("signing identity hash is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	if cfg.KeychainName == "" {
		cfg.KeychainName = DefaultKeychainName
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Orchestrator{cfg: cfg, runner: runner}, nil
}

// PrepareKeychain writes the certificate to disk, creates and unlocks
// the run-scoped keychain, and imports the certificate authorizing
// codesign to use it without interactive prompts. The first failing
// step aborts the rest; cleanup of temporary keychains is left to the
// OS.
func (o *Orchestrator) PrepareKeychain(ctx context.Context) error {
	certPath := filepath.Join(o.cfg.WorkDir, "certificate.p12")
	if err := os.WriteFile(certPath, o.cfg.CertificateP12, 0o600); err != nil {
		return fmt.Errorf("%w: write certificate: %v", ErrSigningFailed, err)
	}

	kc := o.cfg.KeychainName
	pass := o.cfg.Passphrase
	steps := [][]string{
		{"security", "create-keychain", "-p", pass, kc},
		{"security", "default-keychain", "-s", kc},
		{"security", "unlock-keychain", "-p", pass, kc},
		{"security", "import", certPath, "-k", kc, "-P", pass, "-T", codesignPath},
		{"security", "set-key-partition-list", "-S", "apple-tool:,apple:,codesign:", "-s", "-k", pass, kc},
	}
	for _, step := range steps {
		if _, err := o.runner.Run(ctx, step[0], step[1:]...); err != nil {
			// Only the subcommand name goes into the error; the
			// argument list contains the passphrase.
			return fmt.Errorf("%w: security %s: %v", ErrSigningFailed, step[1], err)
		}
	}

	o.prepared = true
	return nil
}

// Sign duplicates the unsigned binary to its "-unsigned" sibling and
// then signs the binary in place. Duplication strictly precedes
// signing, so the sibling always holds the exact pre-signing bytes.
// An existing sibling is a verification input from an earlier signing
// run and is never overwritten.
func (o *Orchestrator) Sign(ctx context.Context, u Unsigned) (*Signed, error) {
	if !o.prepared {
		return nil, fmt.Errorf("%w: keychain not prepared", ErrSigningFailed)
	}

	b := u.Bundle()
	if artifact.Exists(b.UnsignedPath()) {
		return nil, fmt.Errorf("%w: unsigned sibling %s already exists and must not be overwritten", ErrSigningFailed, b.UnsignedPath())
	}
	if err := copyFile(b.BinaryPath(), b.UnsignedPath()); err != nil {
		return nil, fmt.Errorf("%w: preserve unsigned copy: %v", ErrSigningFailed, err)
	}

	out, err := o.runner.Run(ctx, codesignPath, "--force", "-s", o.cfg.IdentityHash, b.BinaryPath(), "-v")
	if err != nil {
		return nil, fmt.Errorf("%w: codesign %s: %v: %s", ErrSigningFailed, b.ID, err, out)
	}

	return &Signed{bundle: b}, nil
}

// copyFile copies src to dst, preserving executable permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
