package project

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// digest returns the hex BLAKE3-256 of an archive, stored with each run so
// history shows which archive a run read or wrote.
func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
