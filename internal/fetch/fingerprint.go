package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes a stable content hash for a raw JSON payload. The
// payload is decoded and re-encoded so that object key order does not affect
// the result (encoding/json writes map keys sorted); byte-identical content
// and semantically identical content with reordered keys hash the same.
func Fingerprint(raw []byte) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
