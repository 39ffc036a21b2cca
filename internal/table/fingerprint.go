package table

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// Fingerprint is a 128-bit xxh3 digest of t's canonical CSV encoding, hex
// encoded. Tables with equal keys, order and cells share a fingerprint.
func Fingerprint(t *Table) (string, error) {
	h := xxh3.New()
	if err := WriteCSV(h, t); err != nil {
		return "", err
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}
