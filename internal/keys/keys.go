// Package keys derives partition keys for items stored alongside dimension
// records.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ConstraintPK computes a hash-distributed partition key for one natural-key
// constraint value. Every part is length-prefixed, so ("a#b", "c") and
// ("a", "b#c") never share a key.
func ConstraintPK(table, constraint string, values ...string) string {
	var b strings.Builder
	for _, part := range append([]string{table, constraint}, values...) {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}
