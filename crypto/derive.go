package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveID computes the canonical identifier for a record from its structural
// seeds. Each seed is length prefixed so ("ab","c") and ("a","bc") never collide.
func DeriveID(seeds ...[]byte) common.Hash {
	size := 0
	for _, seed := range seeds {
		size += binary.MaxVarintLen64 + len(seed)
	}
	buf := make([]byte, 0, size)
	var prefix [binary.MaxVarintLen64]byte
	for _, seed := range seeds {
		n := binary.PutUvarint(prefix[:], uint64(len(seed)))
		buf = append(buf, prefix[:n]...)
		buf = append(buf, seed...)
	}
	return crypto.Keccak256Hash(buf)
}

// OwnerFromAddress widens a participant address into the 32 byte owner space
// shared with program derived authorities.
func OwnerFromAddress(addr [20]byte) common.Hash {
	return common.BytesToHash(addr[:])
}
