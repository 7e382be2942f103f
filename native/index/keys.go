package index

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/crypto"
	"dipindex/native/bank"
)

var (
	forestSeed    = []byte("forest")
	authoritySeed = []byte("authority")
	treeSeed      = []byte("tree")
	nodeSeed      = []byte("node")
	rootSeed      = []byte("root")
	noteSeed      = []byte("note")
	stakeSeed     = []byte("stake")
	bribeSeed     = []byte("bribe")
	claimSeed     = []byte("claim")
	voteLabel     = []byte("vote")
)

// ForestID derives the record id of the forest created with key.
func ForestID(key [32]byte) common.Hash {
	return crypto.DeriveID(forestSeed, key[:])
}

// ForestAuthoritySeeds returns the seeds whose derivation signs withdrawals
// from the custody accounts of forest.
func ForestAuthoritySeeds(forest common.Hash) [][]byte {
	return [][]byte{authoritySeed, forest.Bytes()}
}

// ForestAuthority derives the program authority owning the forest custody.
func ForestAuthority(forest common.Hash) common.Hash {
	return crypto.DeriveID(ForestAuthoritySeeds(forest)...)
}

// VoteCustodyID derives the custody account holding staked vote tokens.
func VoteCustodyID(forest common.Hash, mint common.Hash) common.Hash {
	return bank.CustodyID(mint, ForestAuthority(forest), voteLabel)
}

// TreeID derives the id of the tree tagged tag inside forest.
func TreeID(forest common.Hash, tag string) common.Hash {
	return crypto.DeriveID(treeSeed, forest.Bytes(), []byte(tag))
}

// RootNodeID derives the root node of a tree.
func RootNodeID(tree common.Hash, tag string) common.Hash {
	return crypto.DeriveID(nodeSeed, tree.Bytes(), rootSeed, []byte(tag))
}

// NodeID derives the child of parent introducing tag. The root marker seed is
// shorter than a hash, so a child id can never collide with a root id.
func NodeID(tree common.Hash, parent common.Hash, tag string) common.Hash {
	return crypto.DeriveID(nodeSeed, tree.Bytes(), parent.Bytes(), []byte(tag))
}

// NoteID derives the id of the note created with key inside forest.
func NoteID(forest common.Hash, key [32]byte) common.Hash {
	return crypto.DeriveID(noteSeed, forest.Bytes(), key[:])
}

// StakeID derives the stake account of staker on note.
func StakeID(note common.Hash, staker [20]byte) common.Hash {
	return crypto.DeriveID(stakeSeed, note.Bytes(), staker[:])
}

// BribeID derives the bribe funded by briber on node.
func BribeID(node common.Hash, briber [20]byte) common.Hash {
	return crypto.DeriveID(bribeSeed, node.Bytes(), briber[:])
}

// BribeCustodyID derives the custody account escrowing a bribe.
func BribeCustodyID(forest common.Hash, mint common.Hash, bribe common.Hash) common.Hash {
	return bank.CustodyID(mint, ForestAuthority(forest), bribe.Bytes())
}

// ClaimID derives the claim receipt of staker for bribe.
func ClaimID(bribe common.Hash, staker [20]byte) common.Hash {
	return crypto.DeriveID(claimSeed, bribe.Bytes(), staker[:])
}

// NodeIDForPath derives the node reached from the root of tree by following
// tags. An empty path yields the root node.
func NodeIDForPath(forest common.Hash, rootTag string, path ...string) common.Hash {
	tree := TreeID(forest, rootTag)
	id := RootNodeID(tree, rootTag)
	for _, tag := range path {
		id = NodeID(tree, id, tag)
	}
	return id
}
