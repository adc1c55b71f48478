package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var (
	// ErrMissingArtifact indicates an artifact file does not exist,
	// which almost always means an upstream download failed.
	ErrMissingArtifact = errors.New("artifact missing")

	// ErrCorruptArtifact indicates an artifact file holds text content
	// rather than a native executable. The dominant cause is a download
	// that actually returned an HTML error page.
	ErrCorruptArtifact = errors.New("artifact corrupt")
)

// Executable format magic numbers. Mach-O values are from Apple's
// mach-o/loader.h; fat binaries use the cafebabe family.
const (
	machoMagic32    = 0xfeedface
	machoMagic64    = 0xfeedfacf
	machoCigam32    = 0xcefaedfe
	machoCigam64    = 0xcffaedfe
	machoFatMagic   = 0xcafebabe
	machoFatMagic64 = 0xcafebabf
)

// sniffLen is how many leading bytes are inspected, matching
// http.DetectContentType's window.
const sniffLen = 512

// AssertValid checks that the file at path exists and looks like a
// native executable rather than a saved error page. It reads only the
// leading bytes and never modifies the file, so repeated calls on an
// unchanged file always return the same result.
func AssertValid(path string) (*VerificationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail("precheck", "file does not exist"),
				fmt.Errorf("%w: %s does not exist, did it fail to download?", ErrMissingArtifact, path)
		}
		return Inconclusive("precheck", err.Error()), fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Inconclusive("precheck", err.Error()), fmt.Errorf("read artifact: %w", err)
	}
	head = head[:n]

	if len(head) == 0 {
		return Fail("precheck", "file is empty"),
			fmt.Errorf("%w: %s is empty", ErrCorruptArtifact, path)
	}

	if isExecutableMagic(head) {
		return Pass("precheck"), nil
	}

	contentType := http.DetectContentType(head)
	if strings.HasPrefix(contentType, "text/") {
		return Fail("precheck", "file is "+contentType),
			fmt.Errorf("%w: %s is of type %s, not a native executable", ErrCorruptArtifact, path, contentType)
	}

	// Unknown binary content: not one of the formats we recognize, but
	// not a saved text page either. The downstream signature and
	// attestation checks will reject anything genuinely wrong.
	return Pass("precheck"), nil
}

// isExecutableMagic reports whether the leading bytes carry a known
// ELF or Mach-O magic number.
func isExecutableMagic(head []byte) bool {
	if len(head) >= 4 && head[0] == 0x7f && head[1] == 'E' && head[2] == 'L' && head[3] == 'F' {
		return true
	}
	if len(head) < 4 {
		return false
	}
	le := binary.LittleEndian.Uint32(head)
	be := binary.BigEndian.Uint32(head)
	for _, magic := range []uint32{machoMagic32, machoMagic64, machoCigam32, machoCigam64, machoFatMagic, machoFatMagic64} {
		if le == magic || be == magic {
			return true
		}
	}
	return false
}

// FileSHA256 returns the lowercase hex SHA-256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
