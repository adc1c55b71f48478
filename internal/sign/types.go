// Package sign drives the macOS code-signing tools against darwin
// release artifacts.
//
// Signing rewrites a binary in place, so before anything else the
// orchestrator duplicates the unsigned bytes to the artifact's
// "-unsigned" sibling path. The sibling is what the attestation covers
// and the attestation auditor consumes; it must never be overwritten
// once the signed/unsigned pair exists. That ordering is enforced by
// the type system here: only Orchestrator.Sign can turn an Unsigned
// handle into a Signed one, and it performs the duplication first.
package sign

import (
	"errors"
	"fmt"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

// ErrSigningFailed indicates a signing sub-step failed. The remaining
// steps are aborted; signing is never retried.
var ErrSigningFailed = errors.New("signing failed")

// DefaultKeychainName is the run-scoped keychain holding the signing
// certificate.
const DefaultKeychainName = "build.keychain"

// Config carries everything the orchestrator needs. Nothing is read
// from the process environment; CI wiring happens in the caller.
type Config struct {
	// CertificateP12 is the decoded .p12 certificate bundle.
	CertificateP12 []byte
	// Passphrase unlocks the keychain and the certificate import.
	Passphrase string
	// IdentityHash is the SHA-1 hash of the signing identity, as passed
	// to codesign -s.
	IdentityHash string
	// KeychainName defaults to DefaultKeychainName.
	KeychainName string
	// WorkDir is where the certificate file is materialized.
	WorkDir string
}

// Unsigned is a handle to a darwin artifact that has not been signed.
type Unsigned struct {
	bundle artifact.Bundle
}

// NewUnsigned creates an Unsigned handle for a darwin artifact bundle.
func NewUnsigned(b artifact.Bundle) (Unsigned, error) {
	if !b.ID.IsDarwin() {
		return Unsigned{}, fmt.Errorf("artifact %s is not a darwin binary", b.ID)
	}
	return Unsigned{bundle: b}, nil
}

// Bundle returns the underlying artifact bundle.
func (u Unsigned) Bundle() artifact.Bundle {
	return u.bundle
}

// Signed is a handle to a darwin artifact whose binary has been signed
// in place and whose unsigned sibling holds the pre-signing bytes.
type Signed struct {
	bundle artifact.Bundle
}

// Bundle returns the underlying artifact bundle.
func (s Signed) Bundle() artifact.Bundle {
	return s.bundle
}
