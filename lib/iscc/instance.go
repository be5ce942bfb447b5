package iscc

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const instanceChunkSize = 64 * 1024

var (
	leafPrefix = []byte{0x00}
	nodePrefix = []byte{0x01}
)

// InstanceID computes the Instance-ID and the hex checksum of the data.
// The checksum is the root of a SHA-256d Merkle tree over 64 KiB leaves; the
// code body is its first 8 bytes.
func InstanceID(data []byte) (code, checksum string) {
	var leaves [][32]byte
	for off := 0; ; off += instanceChunkSize {
		end := min(off+instanceChunkSize, len(data))
		leaves = append(leaves, sha256d(leafPrefix, data[off:end]))
		if end >= len(data) {
			break
		}
	}

	root := merkleRoot(leaves)
	body := binary.BigEndian.Uint64(root[:8])
	return Component{Header: HeaderInstance, Body: body}.String(), hex.EncodeToString(root[:])
}

// Odd nodes are promoted to the next level unchanged.
func merkleRoot(level [][32]byte) [32]byte {
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, sha256d(nodePrefix, level[i][:], level[i+1][:]))
		}
		level = next
	}
	return level[0]
}

func sha256d(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return sha256.Sum256(h.Sum(nil))
}
