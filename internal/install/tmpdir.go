package install

import "os"

// ExecutableTempDir returns a directory the downloaded client can be
// executed from: the TMPDIR override when set, the working directory
// when /tmp is mounted noexec, and /tmp otherwise.
func ExecutableTempDir() string {
	if dir := os.Getenv("TMPDIR"); dir != "" {
		return dir
	}
	if tmpIsNoexec() {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return "/tmp"
}
