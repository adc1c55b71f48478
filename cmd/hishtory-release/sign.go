package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/ddworken/hishtory-release/internal/artifact"
	"github.com/ddworken/hishtory-release/internal/sign"
)

// defaultIdentityHash is the SHA-1 hash of the release signing identity
// as registered in the certificate bundle.
const defaultIdentityHash = "6D4E1575A0D40C370E294916A8390797106C8A6E"

// runSign handles the `hishtory-release sign` subcommand: it prechecks
// and signs both darwin artifacts in the current directory, preserving
// their unsigned siblings.
func runSign(args []string) error {
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			printSignHelp()
			return nil
		}
	}

	certB64 := os.Getenv("MACOS_CERTIFICATE")
	if certB64 == "" {
		return fmt.Errorf("MACOS_CERTIFICATE is required")
	}
	cert, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return fmt.Errorf("decode MACOS_CERTIFICATE: %w", err)
	}
	passphrase := os.Getenv("MACOS_CERTIFICATE_PWD")
	if passphrase == "" {
		return fmt.Errorf("MACOS_CERTIFICATE_PWD is required")
	}
	identityHash := os.Getenv("MACOS_SIGNING_IDENTITY")
	if identityHash == "" {
		identityHash = defaultIdentityHash
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	darwinIDs := []artifact.ID{artifact.DarwinArm64, artifact.DarwinAmd64}

	// Refuse to sign anything that failed to download or is actually a
	// saved error page.
	for _, id := range darwinIDs {
		bundle := artifact.NewBundle(workDir, id)
		if _, err := artifact.AssertValid(bundle.BinaryPath()); err != nil {
			return err
		}
	}

	orchestrator, err := sign.NewOrchestrator(sign.Config{
		CertificateP12: cert,
		Passphrase:     passphrase,
		IdentityHash:   identityHash,
		WorkDir:        workDir,
	}, nil)
	if err != nil {
		return err
	}

	fmt.Println("Preparing signing keychain...")
	if err := orchestrator.PrepareKeychain(ctx); err != nil {
		return err
	}

	for _, id := range darwinIDs {
		bundle := artifact.NewBundle(workDir, id)
		unsigned, err := sign.NewUnsigned(bundle)
		if err != nil {
			return err
		}
		fmt.Printf("Signing %s...\n", id)
		if _, err := orchestrator.Sign(ctx, unsigned); err != nil {
			return err
		}
	}

	fmt.Println("Signed both darwin artifacts.")
	return nil
}

func printSignHelp() {
	fmt.Println("Usage: hishtory-release sign")
	fmt.Println()
	fmt.Println("Signs hishtory-darwin-arm64 and hishtory-darwin-amd64 in the")
	fmt.Println("current directory, preserving -unsigned siblings for the")
	fmt.Println("attestation audit.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  MACOS_CERTIFICATE        base64-encoded .p12 certificate bundle (required)")
	fmt.Println("  MACOS_CERTIFICATE_PWD    certificate passphrase (required)")
	fmt.Println("  MACOS_SIGNING_IDENTITY   SHA-1 hash of the signing identity")
}
