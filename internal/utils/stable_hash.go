package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// StableHash computes a content-derived key for a tuple of identifiers.
// The encoding is length-prefix framed so distinct tuples never collide by
// concatenation, and the result depends only on the tuple's content, never
// on enumeration order or process state. Sorting by this key gives the
// reproducible iteration order used wherever output order is observable.
func StableHash(parts ...string) string {
	h := sha256.New()
	var frame [8]byte
	for _, p := range parts {
		n := len(p)
		for i := 7; i >= 0; i-- {
			frame[i] = byte(n)
			n >>= 8
		}
		h.Write(frame[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
