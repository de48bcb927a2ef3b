package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex SHA-256 of domain || 0x00 || Canonical(fields).
// The separator keeps the domain and the data from running into each other.
func Sum(domain string, fields map[string]any) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(Canonical(fields))
	return hex.EncodeToString(h.Sum(nil))
}
