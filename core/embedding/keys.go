package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	keyPrefix      = "emb"
	keySeparator   = ":"
	truncateLength = 64
)

// Key derives the cache key for a text: a hash of its normalized form, so
// texts differing only in case or whitespace share one entry.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	hash := hex.EncodeToString(sum[:])[:truncateLength]
	return strings.Join([]string{keyPrefix, model, hash}, keySeparator)
}

// Normalize lowercases text and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
