package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random opaque identifier, optionally prefixed. Used
// for every document kind except projects, which get slug IDs.
func NewID(prefix string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
