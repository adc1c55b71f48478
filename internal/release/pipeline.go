package release

import (
	"context"
	"fmt"
	"time"

	"github.com/ddworken/hishtory-release/internal/artifact"
	"github.com/ddworken/hishtory-release/internal/audit"
	"github.com/ddworken/hishtory-release/internal/sign"
)

// State is a stage in the per-artifact validation sequence. Each state
// requires the previous one to have passed; no artifact skips a state.
type State string

const (
	StateFetched            State = "fetched"
	StatePrecheckPassed     State = "precheck-passed"
	StateSigned             State = "signed"
	StateSignatureAudited   State = "signature-audited"
	StateAttestationAudited State = "attestation-audited"
	StateMetadataAudited    State = "metadata-audited"
)

// Fetcher is what the pipeline needs from the artifact fetcher.
type Fetcher interface {
	Poll(ctx context.Context, url, dest string, budget time.Duration) error
}

// Signer signs one darwin artifact in place, preserving its unsigned
// sibling. Nil in validation-only runs, where artifacts arrive already
// signed and the sibling is fetched instead.
type Signer interface {
	Sign(ctx context.Context, u sign.Unsigned) (*sign.Signed, error)
}

// PipelineConfig wires a validation run.
type PipelineConfig struct {
	// WorkDir holds the artifact files. Exactly one run may use it at a
	// time; Run enforces this with a lock file.
	WorkDir string

	// Fetcher polls for artifacts before validation. Nil means the
	// artifacts are already present in WorkDir.
	Fetcher Fetcher
	// URLs maps each artifact to its binary download URL; attestation
	// and unsigned-copy URLs are derived by suffix. Required when
	// Fetcher is set.
	URLs map[artifact.ID]string
	// RetryBudget bounds each publish-wait poll.
	RetryBudget time.Duration

	// Signer signs darwin artifacts in place. Nil for validation-only
	// runs against already-signed artifacts.
	Signer Signer

	Signature   *audit.SignatureAuditor
	Attestation *audit.AttestationAuditor
	Metadata    *audit.MetadataAuditor

	// VerifierBinary is the trusted binary driving the attestation
	// audits. When set, it gets a lenient metadata audit before any
	// artifact is validated: a verifier that cannot identify itself is
	// not trusted with the rest of the run.
	VerifierBinary string

	// Expected identifies the release for the strict metadata audit of
	// the canonical artifact.
	Expected audit.Release
	// Canonical is the artifact audited strictly; the rest get the
	// lenient smoke-test audit. Defaults to darwin-amd64.
	Canonical artifact.ID

	Logger Logger
}

// Pipeline validates a full release artifact set sequentially.
type Pipeline struct {
	cfg    PipelineConfig
	states map[artifact.ID]State
}

// NewPipeline creates a validation pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	if cfg.Signature == nil || cfg.Attestation == nil || cfg.Metadata == nil {
		return nil, fmt.Errorf("all three auditors are required")
	}
	if cfg.Fetcher != nil && len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("URLs are required when fetching is enabled")
	}
	if cfg.Canonical == "" {
		cfg.Canonical = artifact.DarwinAmd64
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		states: make(map[artifact.ID]State),
	}, nil
}

// State returns the last state an artifact reached in this run.
func (p *Pipeline) State(id artifact.ID) State {
	return p.states[id]
}

// Run validates every artifact in the release set, in order. The first
// failure aborts the whole run with the artifact identifier attached;
// a supply-chain verifier must not report "mostly verified".
func (p *Pipeline) Run(ctx context.Context) error {
	lock, err := AcquireLock(p.cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("lock working directory: %w", err)
	}
	defer lock.Release()

	if p.cfg.VerifierBinary != "" {
		if _, err := p.cfg.Metadata.Audit(ctx, p.cfg.VerifierBinary, false, audit.Release{}); err != nil {
			return fmt.Errorf("verifier binary %s: %w", p.cfg.VerifierBinary, err)
		}
	}

	for _, id := range artifact.ReleaseIDs() {
		if err := p.validate(ctx, id); err != nil {
			return fmt.Errorf("artifact %s: %w", id, err)
		}
	}
	return nil
}

func (p *Pipeline) advance(id artifact.ID, s State) {
	p.states[id] = s
	p.cfg.Logger.Info("state reached", "artifact", id, "state", s)
}

// validate marches one artifact through the state sequence.
func (p *Pipeline) validate(ctx context.Context, id artifact.ID) error {
	b := artifact.NewBundle(p.cfg.WorkDir, id)

	if p.cfg.Fetcher != nil {
		url := p.cfg.URLs[id]
		if url == "" {
			return fmt.Errorf("no download URL configured")
		}
		if err := p.cfg.Fetcher.Poll(ctx, url, b.BinaryPath(), p.cfg.RetryBudget); err != nil {
			return fmt.Errorf("fetch binary: %w", err)
		}
		if err := p.cfg.Fetcher.Poll(ctx, url+artifact.AttestationSuffix, b.AttestationPath(), p.cfg.RetryBudget); err != nil {
			return fmt.Errorf("fetch attestation: %w", err)
		}
		if id.IsDarwin() && p.cfg.Signer == nil {
			if err := p.cfg.Fetcher.Poll(ctx, url+artifact.UnsignedSuffix, b.UnsignedPath(), p.cfg.RetryBudget); err != nil {
				return fmt.Errorf("fetch unsigned copy: %w", err)
			}
		}
	}
	p.advance(id, StateFetched)

	if _, err := artifact.AssertValid(b.BinaryPath()); err != nil {
		return err
	}
	p.advance(id, StatePrecheckPassed)

	if id.IsDarwin() {
		if p.cfg.Signer != nil {
			unsigned, err := sign.NewUnsigned(b)
			if err != nil {
				return err
			}
			if _, err := p.cfg.Signer.Sign(ctx, unsigned); err != nil {
				return err
			}
		} else {
			// Signed upstream: the preserved pre-signing copy must
			// still be present and healthy for the attestation audit.
			if !artifact.Exists(b.UnsignedPath()) {
				return fmt.Errorf("%w: %s does not exist", audit.ErrMissingInput, b.UnsignedPath())
			}
			if _, err := artifact.AssertValid(b.UnsignedPath()); err != nil {
				return err
			}
		}
		p.advance(id, StateSigned)

		if _, err := p.cfg.Signature.Audit(ctx, b.BinaryPath()); err != nil {
			return err
		}
		p.advance(id, StateSignatureAudited)
	}

	// Structural check of the attestation file before handing it to the
	// embedded verifier. The attestation covers the pre-signing bytes,
	// so darwin artifacts are checked against the unsigned sibling.
	attested := b.BinaryPath()
	if id.IsDarwin() {
		attested = b.UnsignedPath()
	}
	if artifact.Exists(b.AttestationPath()) && artifact.Exists(attested) {
		digest, err := artifact.FileSHA256(attested)
		if err != nil {
			return fmt.Errorf("hash attested binary: %w", err)
		}
		if _, err := artifact.InspectAttestation(b.AttestationPath(), id.BinaryName(), digest); err != nil {
			return err
		}
	}
	if _, err := p.cfg.Attestation.Audit(ctx, b); err != nil {
		return err
	}
	p.advance(id, StateAttestationAudited)

	strict := id == p.cfg.Canonical
	if _, err := p.cfg.Metadata.Audit(ctx, b.BinaryPath(), strict, p.cfg.Expected); err != nil {
		return err
	}
	p.advance(id, StateMetadataAudited)

	return nil
}
