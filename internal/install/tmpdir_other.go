//go:build !linux && !darwin

package install

func tmpIsNoexec() bool {
	return false
}
