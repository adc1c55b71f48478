package install

import "golang.org/x/sys/unix"

// tmpIsNoexec reports whether /tmp is mounted with the noexec flag.
// Best effort: inspection failures are treated as executable.
func tmpIsNoexec() bool {
	var st unix.Statfs_t
	if err := unix.Statfs("/tmp", &st); err != nil {
		return false
	}
	return st.Flags&unix.ST_NOEXEC != 0
}
