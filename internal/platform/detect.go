package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual host inspection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns the host's uname-style system and machine names.
// It uses gopsutil's host information for the kernel architecture; if
// that fails (and the context is still live), it falls back to values
// derived from runtime.GOOS and runtime.GOARCH so the resolver can
// still run.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return &Info{
			System:  systemName(runtime.GOOS),
			Machine: machineName(runtime.GOOS, runtime.GOARCH),
		}, nil
	}

	machine := info.KernelArch
	if machine == "" {
		machine = machineName(runtime.GOOS, runtime.GOARCH)
	}

	return &Info{
		System:  systemName(info.OS),
		Machine: machine,
	}, nil
}

// systemName maps a GOOS value to the kernel name uname reports.
func systemName(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	default:
		return goos
	}
}

// machineName maps a GOARCH value to the machine name uname reports on
// that OS. Darwin reports arm64 where Linux reports aarch64.
func machineName(goos, goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		if goos == "darwin" {
			return "arm64"
		}
		return "aarch64"
	case "arm":
		return "armv7l"
	default:
		return goarch
	}
}
