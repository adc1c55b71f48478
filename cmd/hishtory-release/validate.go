package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ddworken/hishtory-release/internal/artifact"
	"github.com/ddworken/hishtory-release/internal/audit"
	"github.com/ddworken/hishtory-release/internal/fetch"
	"github.com/ddworken/hishtory-release/internal/release"
)

// runValidate handles the `hishtory-release validate` subcommand: the
// full post-release validation over all four artifacts.
func runValidate(args []string) error {
	configPath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			printValidateHelp()
			return nil
		case "--config":
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a file path")
			}
			i++
			configPath = args[i]
		default:
			return fmt.Errorf("unknown argument %q", args[i])
		}
	}

	cfg, err := release.LoadJobConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.VerifierPath == "" {
		return fmt.Errorf("verifier_path is required in the job config")
	}
	if cfg.ExpectedVersion == "" {
		if version, err := release.ReadVersionFile("VERSION"); err == nil {
			cfg.ExpectedVersion = version
		}
	}

	logger := &release.WriterLogger{W: os.Stderr}
	runner := audit.ExecRunner{}

	pipelineCfg := release.PipelineConfig{
		WorkDir:        cfg.WorkDir,
		Signature:      audit.NewSignatureAuditor(runner, cfg.SigningIdentity()),
		Attestation:    audit.NewAttestationAuditor(runner, cfg.VerifierPath),
		Metadata:       audit.NewMetadataAuditor(runner),
		VerifierBinary: cfg.VerifierPath,
		Expected: audit.Release{
			CommitHash: cfg.ExpectedCommit,
			Version:    cfg.ExpectedVersion,
		},
		Logger: logger,
	}

	if cfg.FetchArtifacts {
		if cfg.Version == "" {
			return fmt.Errorf("version is required in the job config when fetch_artifacts is enabled")
		}
		updateInfo := release.BuildUpdateInfo(cfg.Version)
		urls := make(map[artifact.ID]string)
		for _, id := range artifact.ReleaseIDs() {
			urls[id] = updateInfo.BinaryURL(id)
		}
		pipelineCfg.Fetcher = fetch.New(fetch.Config{Token: cfg.Token})
		pipelineCfg.URLs = urls
		pipelineCfg.RetryBudget = cfg.RetryBudget()
	}

	pipeline, err := release.NewPipeline(pipelineCfg)
	if err != nil {
		return err
	}

	if err := pipeline.Run(context.Background()); err != nil {
		return err
	}

	fmt.Println("All release artifacts validated.")
	return nil
}

func printValidateHelp() {
	fmt.Println("Usage: hishtory-release validate [--config <file>]")
	fmt.Println()
	fmt.Println("Validates every artifact of a release: integrity precheck,")
	fmt.Println("darwin signature audit, SLSA attestation audit via the embedded")
	fmt.Println("verifier, and a runtime metadata audit. The first failure aborts")
	fmt.Println("the whole run.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GITHUB_SHA     expected commit hash for the strict metadata audit")
	fmt.Println("  GITHUB_TOKEN   bearer token for polling private release assets")
}
