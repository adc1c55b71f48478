// Package testutil provides utilities for testing the release pipeline
// in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// elfHeader is the leading bytes of a minimal ELF file, enough for the
// integrity precheck to classify a fixture as a native executable.
var elfHeader = []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// SetupTestEnv creates an isolated working directory and scrubs the
// environment variables the pipeline consumes, so tests never see the
// host's CI credentials or temp-dir overrides.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("TMPDIR", tmpDir)
	t.Setenv("HISHTORY_OFFLINE", "")
	t.Setenv("HISHTORY_DOWNLOAD_ENDPOINT", "")
	t.Setenv("GITHUB_SHA", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("MACOS_CERTIFICATE", "")
	t.Setenv("MACOS_CERTIFICATE_PWD", "")

	return tmpDir
}

// WriteFakeBinary writes a fixture file that passes the integrity
// precheck: an ELF header followed by the given payload, so two
// fixtures with different payloads have different digests.
func WriteFakeBinary(t *testing.T, path, payload string) {
	t.Helper()

	content := append(append([]byte{}, elfHeader...), []byte(payload)...)
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("failed to write fake binary %s: %v", path, err)
	}
}

// WriteScript writes an executable shell script, used as a stand-in
// for external binaries in tests that really execute a child process.
func WriteScript(t *testing.T, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create script directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", path, err)
	}
}
