// Package artifact defines the released artifact set and the checks
// that run directly against artifact files on disk.
//
// Every release publishes one binary per supported platform, an SLSA
// attestation alongside each binary, and — for darwin artifacts — a
// preserved copy of the binary exactly as it existed before code
// signing. The naming convention is fixed: hishtory-{os}-{arch},
// hishtory-{os}-{arch}.intoto.jsonl, hishtory-{os}-{arch}-unsigned.
package artifact

import (
	"path/filepath"
	"strings"
)

// ID identifies one released binary by platform.
type ID string

const (
	// LinuxAmd64 is the x86_64 Linux artifact.
	LinuxAmd64 ID = "linux-amd64"
	// LinuxArm64 is the aarch64 Linux artifact.
	LinuxArm64 ID = "linux-arm64"
	// LinuxArm7 is the armv7 Linux artifact. It is served by the install
	// path but is not part of the validated release set.
	LinuxArm7 ID = "linux-arm"
	// DarwinAmd64 is the Intel macOS artifact.
	DarwinAmd64 ID = "darwin-amd64"
	// DarwinArm64 is the Apple Silicon macOS artifact.
	DarwinArm64 ID = "darwin-arm64"
)

const (
	componentName = "hishtory"

	// AttestationSuffix is appended to a binary name to form its SLSA
	// attestation file name.
	AttestationSuffix = ".intoto.jsonl"

	// UnsignedSuffix is appended to a darwin binary name to form the
	// name of its preserved pre-signing copy.
	UnsignedSuffix = "-unsigned"
)

// ReleaseIDs returns the fixed artifact set validated on every release,
// in validation order.
func ReleaseIDs() []ID {
	return []ID{LinuxAmd64, LinuxArm64, DarwinAmd64, DarwinArm64}
}

// String returns the string representation of the artifact ID.
func (id ID) String() string {
	return string(id)
}

// IsDarwin reports whether the artifact is a macOS binary and therefore
// subject to code signing.
func (id ID) IsDarwin() bool {
	return strings.HasPrefix(string(id), "darwin-")
}

// BinaryName returns the released binary file name for this artifact.
func (id ID) BinaryName() string {
	return componentName + "-" + string(id)
}

// AttestationName returns the SLSA attestation file name for this artifact.
func (id ID) AttestationName() string {
	return id.BinaryName() + AttestationSuffix
}

// UnsignedName returns the preserved pre-signing file name for this
// artifact. Only meaningful for darwin artifacts.
func (id ID) UnsignedName() string {
	return id.BinaryName() + UnsignedSuffix
}

// Bundle resolves the on-disk paths of one artifact's related files in
// a working directory.
type Bundle struct {
	ID  ID
	Dir string
}

// NewBundle creates a bundle rooted at dir for the given artifact.
func NewBundle(dir string, id ID) Bundle {
	return Bundle{ID: id, Dir: dir}
}

// BinaryPath returns the path of the released binary.
func (b Bundle) BinaryPath() string {
	return filepath.Join(b.Dir, b.ID.BinaryName())
}

// AttestationPath returns the path of the SLSA attestation file.
func (b Bundle) AttestationPath() string {
	return filepath.Join(b.Dir, b.ID.AttestationName())
}

// UnsignedPath returns the path of the preserved pre-signing copy.
func (b Bundle) UnsignedPath() string {
	return filepath.Join(b.Dir, b.ID.UnsignedName())
}
