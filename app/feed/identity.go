package feed

import (
	"crypto/sha256"
	"encoding/hex"
)

// Identity hashes title and link, in that order. Date, description and source
// never contribute, so content edits of those fields keep the same identity.
func Identity(title, link string) string {
	hash := sha256.Sum256([]byte(title + link))
	return hex.EncodeToString(hash[:])
}
