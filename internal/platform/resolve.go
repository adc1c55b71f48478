package platform

import (
	"errors"
	"fmt"

	"github.com/ddworken/hishtory-release/internal/artifact"
)

// ErrUnsupportedPlatform indicates no release artifact exists for the
// observed (system, machine) pair.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Resolve maps a host platform to the artifact identifier built for it.
// The supported set is closed; any other pair fails with
// ErrUnsupportedPlatform carrying the literal observed strings.
func Resolve(info *Info) (artifact.ID, error) {
	if info == nil {
		return "", fmt.Errorf("platform info is required")
	}

	switch {
	case info.System == "Linux" && info.Machine == "x86_64":
		return artifact.LinuxAmd64, nil
	case info.System == "Linux" && info.Machine == "aarch64":
		return artifact.LinuxArm64, nil
	case info.System == "Linux" && info.Machine == "armv7l":
		return artifact.LinuxArm7, nil
	case info.System == "Darwin" && info.Machine == "arm64":
		return artifact.DarwinArm64, nil
	case info.System == "Darwin" && info.Machine == "x86_64":
		return artifact.DarwinAmd64, nil
	default:
		return "", fmt.Errorf("%w: system=%q machine=%q", ErrUnsupportedPlatform, info.System, info.Machine)
	}
}
