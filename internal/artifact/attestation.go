package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	intoto "github.com/in-toto/in-toto-golang/in_toto"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

// ErrMalformedAttestation indicates an attestation file that is not a
// well-formed DSSE envelope covering the expected artifact.
var ErrMalformedAttestation = errors.New("malformed attestation")

// InspectAttestation structurally validates the DSSE envelope in a
// .intoto.jsonl attestation file against the artifact it claims to
// cover: the payload must be an in-toto statement whose subject names
// the artifact, and wantSHA256 (when non-empty) must match the subject
// digest. For darwin artifacts the digest to check is that of the
// unsigned sibling, since the attestation covers the pre-signing build
// output.
//
// This is a cheap offline sanity check. It never substitutes for the
// embedded verifier, which performs the transparency-log and builder
// identity checks.
func InspectAttestation(path, wantSubject, wantSHA256 string) (*VerificationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Inconclusive("attestation-structure", "attestation file does not exist"),
				fmt.Errorf("%w: %s does not exist", ErrMissingArtifact, path)
		}
		return Inconclusive("attestation-structure", err.Error()), fmt.Errorf("open attestation: %w", err)
	}
	defer f.Close()

	// The .jsonl file holds one DSSE envelope per line.
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	envelopes := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		envelopes++
		if result, err := inspectEnvelope([]byte(line), wantSubject, wantSHA256); err != nil {
			return result, err
		}
	}
	if err := scanner.Err(); err != nil {
		return Inconclusive("attestation-structure", err.Error()), fmt.Errorf("scan attestation: %w", err)
	}
	if envelopes == 0 {
		return Fail("attestation-structure", "attestation file is empty"),
			fmt.Errorf("%w: %s contains no envelopes", ErrMalformedAttestation, path)
	}

	return Pass("attestation-structure"), nil
}

// inspectEnvelope validates one DSSE envelope line.
func inspectEnvelope(line []byte, wantSubject, wantSHA256 string) (*VerificationResult, error) {
	var env dsse.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Fail("attestation-structure", "not a DSSE envelope"),
			fmt.Errorf("%w: decode envelope: %v", ErrMalformedAttestation, err)
	}

	if env.PayloadType != intoto.PayloadType {
		return Fail("attestation-structure", "unexpected payload type "+env.PayloadType),
			fmt.Errorf("%w: payload type %q, want %q", ErrMalformedAttestation, env.PayloadType, intoto.PayloadType)
	}

	if len(env.Signatures) == 0 {
		return Fail("attestation-structure", "envelope carries no signatures"),
			fmt.Errorf("%w: envelope carries no signatures", ErrMalformedAttestation)
	}

	payload, err := env.DecodeB64Payload()
	if err != nil {
		return Fail("attestation-structure", "payload is not valid base64"),
			fmt.Errorf("%w: decode payload: %v", ErrMalformedAttestation, err)
	}

	var statement intoto.Statement
	if err := json.Unmarshal(payload, &statement); err != nil {
		return Fail("attestation-structure", "payload is not an in-toto statement"),
			fmt.Errorf("%w: decode statement: %v", ErrMalformedAttestation, err)
	}

	if !strings.HasPrefix(statement.Type, "https://in-toto.io/Statement/") {
		return Fail("attestation-structure", "unexpected statement type "+statement.Type),
			fmt.Errorf("%w: statement type %q", ErrMalformedAttestation, statement.Type)
	}

	for _, subject := range statement.Subject {
		if subject.Name != wantSubject {
			continue
		}
		if wantSHA256 == "" {
			return nil, nil
		}
		digest, ok := subject.Digest["sha256"]
		if !ok {
			return Fail("attestation-structure", "subject carries no sha256 digest"),
				fmt.Errorf("%w: subject %q carries no sha256 digest", ErrMalformedAttestation, wantSubject)
		}
		if !strings.EqualFold(digest, wantSHA256) {
			return Fail("attestation-structure", "subject digest does not match artifact"),
				fmt.Errorf("%w: subject %q digest %s, artifact digest %s", ErrMalformedAttestation, wantSubject, digest, wantSHA256)
		}
		return nil, nil
	}

	return Fail("attestation-structure", "no subject named "+wantSubject),
		fmt.Errorf("%w: no subject named %q", ErrMalformedAttestation, wantSubject)
}
