// Package platform resolves the running host to the release artifact
// built for it.
//
// Resolution is keyed on the uname-style identifiers the release
// pipeline uses ("Linux"/"Darwin" plus machine names like "x86_64" and
// "aarch64"). Host detection uses gopsutil so the resolver sees the
// kernel's own naming rather than Go's GOOS/GOARCH vocabulary, with a
// graceful fallback to runtime values when detection fails.
package platform

import "context"

// Info contains host platform information.
type Info struct {
	System  string // kernel name, e.g. "Linux", "Darwin"
	Machine string // kernel architecture, e.g. "x86_64", "aarch64", "armv7l", "arm64"
}

// IsLinux returns true if the host is Linux.
func (i *Info) IsLinux() bool {
	return i.System == "Linux"
}

// IsMacOS returns true if the host is macOS.
func (i *Info) IsMacOS() bool {
	return i.System == "Darwin"
}

// Detector is the interface for host platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
