package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes the hex-encoded SHA-256 content hash of a payload's canonical
// serialization. The hash covers exactly the payload; the owner is carried
// alongside a record but is never part of the digest.
func Hash(payload map[string]any) (string, error) {
	data, err := Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
