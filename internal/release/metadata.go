// Package release ties the pipeline together: the download metadata
// document served to installers, the validation state machine run
// against every release, and the job configuration both read.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ddworken/hishtory-release/internal/artifact"
	"github.com/ddworken/hishtory-release/internal/fetch"
)

// DefaultEndpoint is the production download metadata endpoint.
const DefaultEndpoint = "https://api.hishtory.dev/api/v1/download"

// releaseDownloadPrefix is where published release assets live.
const releaseDownloadPrefix = "https://github.com/ddworken/hishtory/releases/download"

// UpdateInfo is the JSON document the download endpoint serves: one
// binary URL per supported platform, plus the attestation and (darwin)
// unsigned-copy URLs validation needs.
type UpdateInfo struct {
	LinuxAmd64Url             string `json:"linux_amd_64_url"`
	LinuxAmd64AttestationUrl  string `json:"linux_amd_64_attestation_url"`
	LinuxArm64Url             string `json:"linux_arm_64_url"`
	LinuxArm64AttestationUrl  string `json:"linux_arm_64_attestation_url"`
	LinuxArm7Url              string `json:"linux_arm_7_url"`
	LinuxArm7AttestationUrl   string `json:"linux_arm_7_attestation_url"`
	DarwinAmd64Url            string `json:"darwin_amd_64_url"`
	DarwinAmd64UnsignedUrl    string `json:"darwin_amd_64_unsigned_url"`
	DarwinAmd64AttestationUrl string `json:"darwin_amd_64_attestation_url"`
	DarwinArm64Url            string `json:"darwin_arm_64_url"`
	DarwinArm64UnsignedUrl    string `json:"darwin_arm_64_unsigned_url"`
	DarwinArm64AttestationUrl string `json:"darwin_arm_64_attestation_url"`
	Version                   string `json:"version"`
}

// BuildUpdateInfo constructs the release asset URLs for a version tag,
// following the fixed artifact naming convention.
func BuildUpdateInfo(version string) UpdateInfo {
	url := func(name string) string {
		return fmt.Sprintf("%s/%s/%s", releaseDownloadPrefix, version, name)
	}
	return UpdateInfo{
		LinuxAmd64Url:             url(artifact.LinuxAmd64.BinaryName()),
		LinuxAmd64AttestationUrl:  url(artifact.LinuxAmd64.AttestationName()),
		LinuxArm64Url:             url(artifact.LinuxArm64.BinaryName()),
		LinuxArm64AttestationUrl:  url(artifact.LinuxArm64.AttestationName()),
		LinuxArm7Url:              url(artifact.LinuxArm7.BinaryName()),
		LinuxArm7AttestationUrl:   url(artifact.LinuxArm7.AttestationName()),
		DarwinAmd64Url:            url(artifact.DarwinAmd64.BinaryName()),
		DarwinAmd64UnsignedUrl:    url(artifact.DarwinAmd64.UnsignedName()),
		DarwinAmd64AttestationUrl: url(artifact.DarwinAmd64.AttestationName()),
		DarwinArm64Url:            url(artifact.DarwinArm64.BinaryName()),
		DarwinArm64UnsignedUrl:    url(artifact.DarwinArm64.UnsignedName()),
		DarwinArm64AttestationUrl: url(artifact.DarwinArm64.AttestationName()),
		Version:                   version,
	}
}

// BinaryURL returns the binary download URL for an artifact, or "" if
// the document carries none.
func (u UpdateInfo) BinaryURL(id artifact.ID) string {
	switch id {
	case artifact.LinuxAmd64:
		return u.LinuxAmd64Url
	case artifact.LinuxArm64:
		return u.LinuxArm64Url
	case artifact.LinuxArm7:
		return u.LinuxArm7Url
	case artifact.DarwinAmd64:
		return u.DarwinAmd64Url
	case artifact.DarwinArm64:
		return u.DarwinArm64Url
	default:
		return ""
	}
}

// FetchUpdateInfo retrieves and decodes the download metadata document.
func FetchUpdateInfo(ctx context.Context, endpoint string) (*UpdateInfo, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query download endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download endpoint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned status %d", fetch.ErrDownloadFailed, endpoint, resp.StatusCode)
	}

	var info UpdateInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse download endpoint response: %w", err)
	}
	return &info, nil
}
