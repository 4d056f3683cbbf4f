package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash digests an email's subject and body into a stable cache
// key. Two emails with identical content hash to the same key, making
// caching independent of message identity.
func ContentHash(subject, body string) string {
	h := sha256.New()
	h.Write([]byte(subject))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
