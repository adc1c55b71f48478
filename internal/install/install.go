// Package install implements the one-shot installer path: download the
// binary built for this host and hand off to its own install
// subcommand. The downloaded binary is in charge of installing itself;
// this package only gets the right bytes onto disk and executes them.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ddworken/hishtory-release/internal/audit"
	"github.com/ddworken/hishtory-release/internal/fetch"
	"github.com/ddworken/hishtory-release/internal/platform"
	"github.com/ddworken/hishtory-release/internal/release"
)

// ErrInstallFailed indicates the downloaded binary's install subcommand
// exited non-zero.
var ErrInstallFailed = errors.New("install failed")

// tmpBinaryName is the file name the downloaded client is saved under.
const tmpBinaryName = "hishtory-client"

// Options configures an install run.
type Options struct {
	// Endpoint is the download metadata endpoint; empty selects the
	// production endpoint.
	Endpoint string
	// Offline is forwarded to the client's install subcommand as
	// --offline.
	Offline bool
	// ExtraArgs are forwarded verbatim after the install subcommand.
	ExtraArgs []string
	// Logger defaults to no-op.
	Logger release.Logger

	// Stdout and Stderr receive the child's output; nil selects the
	// process's own streams.
	Stdout, Stderr io.Writer
}

// Run downloads the artifact for the running platform and executes its
// install subcommand. The temporary binary is removed on success and
// kept on failure so the error message can point at it.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = &release.WriterLogger{W: os.Stderr}
	}

	detector := platform.NewDetector()
	info, err := detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	id, err := platform.Resolve(info)
	if err != nil {
		return fmt.Errorf("%w\nIf you believe this is a mistake, please open an issue here: https://github.com/ddworken/hishtory/issues", err)
	}
	logger.Info("resolved platform", "artifact", id)

	updateInfo, err := release.FetchUpdateInfo(ctx, opts.Endpoint)
	if err != nil {
		return fmt.Errorf("fetch download metadata: %w", err)
	}
	url := updateInfo.BinaryURL(id)
	if url == "" {
		return fmt.Errorf("download metadata carries no URL for %s", id)
	}

	tmpPath := filepath.Join(ExecutableTempDir(), tmpBinaryName)
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale client binary: %w", err)
	}

	fetcher := fetch.New(fetch.Config{})
	if err := fetcher.Fetch(ctx, url, tmpPath); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		return fmt.Errorf("make client executable: %w", err)
	}
	logger.Info("downloaded client", "path", tmpPath)

	args := []string{"install"}
	if opts.Offline {
		args = append(args, "--offline")
	}
	args = append(args, opts.ExtraArgs...)

	cmd := exec.CommandContext(ctx, tmpPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: running `%s install` failed: %v (is that directory mounted noexec? Consider setting an alternate directory via the TMPDIR environment variable)",
			ErrInstallFailed, tmpPath, err)
	}

	// Smoke test: the freshly installed client must at least identify
	// itself. Lenient on purpose; the strict audit belongs to release
	// validation, not installation.
	auditor := audit.NewMetadataAuditor(nil)
	if _, err := auditor.Audit(ctx, tmpPath, false, audit.Release{}); err != nil {
		return fmt.Errorf("post-install smoke test: %w", err)
	}

	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove temporary client binary", "path", tmpPath, "error", err)
	}
	return nil
}
