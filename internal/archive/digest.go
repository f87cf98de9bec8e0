package archive

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// DigestFile returns the hex BLAKE3 digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile checks the file at path against an expected hex digest.
func VerifyFile(path, expected string) error {
	actual, err := DigestFile(path)
	if err != nil {
		return fmt.Errorf("digest %s: %w", path, err)
	}
	if actual != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, path, expected, actual)
	}
	return nil
}
