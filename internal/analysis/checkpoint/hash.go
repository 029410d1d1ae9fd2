package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// contentHashLen is the truncated hex length of a content hash. The hash is
// a change-detection fingerprint, not a security boundary.
const contentHashLen = 16

// ComputeContentHash fingerprints chapter content as the SHA-256 of the
// newline-joined sections, hex-encoded and truncated to 16 characters.
func ComputeContentHash(sections []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sections, "\n")))
	return hex.EncodeToString(sum[:])[:contentHashLen]
}
