// Package checksum computes content digests used as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/starford/moonshine/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Mash digests every user-visible field of m. Fields are NUL-separated so
// that shifting text between fields changes the digest.
func Mash(m models.Mash) string {
	var b []byte
	for _, f := range []string{m.ID, m.Type, m.Status, m.Summary, m.Context, m.Memo} {
		b = append(b, f...)
		b = append(b, 0)
	}
	b = strconv.AppendInt(b, m.UpdatedAt, 10)
	return Sum(b)
}
