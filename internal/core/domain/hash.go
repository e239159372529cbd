package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// HashBytes returns the lowercase hex sha256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashText returns the lowercase hex sha256 digest of the UTF-8 bytes of s.
func HashText(s string) string {
	return HashBytes([]byte(s))
}

// ChunkID returns the identifier of the chunk at index within a document.
func ChunkID(documentID string, index int) string {
	return HashText(documentID + ":" + strconv.Itoa(index))
}

// VectorID derives the numeric vector id of a chunk from its ID.
// The first 8 bytes of the chunk digest are read big-endian. IDs that are
// not hex digests are hashed first so every input maps to an id.
func VectorID(chunkID string) uint64 {
	raw, err := hex.DecodeString(chunkID)
	if err != nil || len(raw) < 8 {
		sum := sha256.Sum256([]byte(chunkID))
		raw = sum[:]
	}
	return binary.BigEndian.Uint64(raw[:8])
}
