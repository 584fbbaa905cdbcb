package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint hashes the full content of r, producing the key used to look up
// and record entries in the Duplicate Index. Content is read once regardless
// of source (extracted file, virtual entry, mounted path), so the fingerprint
// never depends on which materialization strategy produced it.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
