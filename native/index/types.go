package index

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
)

// ModuleName owns every index record.
const ModuleName = "index"

const (
	KindForest     state.Kind = 1
	KindTree       state.Kind = 2
	KindNode       state.Kind = 3
	KindNote       state.Kind = 4
	KindStake      state.Kind = 5
	KindBribe      state.Kind = 6
	KindBribeClaim state.Kind = 7
)

// Params bounds the shape of the index.
type Params struct {
	// NodeCapacity is the maximum number of attached children per node.
	NodeCapacity int
	// MaxTagLength is exclusive: a tag must be strictly shorter.
	MaxTagLength int
	// MaxStringLength is inclusive and applies to note content fields.
	MaxStringLength int
}

// DefaultParams returns the limits used when none are configured.
func DefaultParams() Params {
	return Params{NodeCapacity: 8, MaxTagLength: 32, MaxStringLength: 200}
}

// Forest is the governance root for a family of trees.
type Forest struct {
	ID              common.Hash
	Key             [32]byte
	Admin           [20]byte
	TreeCreationFee uint64
	VoteMint        common.Hash
	VoteCustody     common.Hash
}

// Tree is a tagged hierarchy rooted at a single tag.
type Tree struct {
	ID       common.Hash
	Forest   common.Hash
	RootNode common.Hash
	Tag      string
}

// Node is a vertex of a tree. Tags holds the path ordered tag set, the last
// element being the tag the node introduces. Parent is zero for root nodes.
type Node struct {
	ID       common.Hash
	Tree     common.Hash
	Parent   common.Hash
	IsRoot   bool
	Tag      string
	Tags     []string
	NotTags  []string
	Note     common.Hash
	Stake    uint64
	Children []common.Hash
}

// HasNote reports whether a note currently occupies the node.
func (n *Node) HasNote() bool { return n.Note != (common.Hash{}) }

func (n *Node) childIndex(id common.Hash) int {
	for i, child := range n.Children {
		if child == id {
			return i
		}
	}
	return -1
}

// Note is a unit of indexed content.
type Note struct {
	ID          common.Hash
	Key         [32]byte
	Forest      common.Hash
	Author      [20]byte
	Title       string
	Website     string
	Image       string
	Description string
	Stake       uint64
	Location    common.Hash
}

// Located reports whether the note is attached to a node.
func (n *Note) Located() bool { return n.Location != (common.Hash{}) }

// StakeAccount tracks the tokens one staker holds behind one note.
type StakeAccount struct {
	ID     common.Hash
	Note   common.Hash
	Staker [20]byte
	Stake  uint64
}

// Bribe is an escrowed reward for the stakers of whichever note holds Node.
type Bribe struct {
	ID      common.Hash
	Node    common.Hash
	Briber  [20]byte
	Forest  common.Hash
	Custody common.Hash
	Amount  uint64
	Claimed uint64
	Claims  uint64
	// ClaimedStake sums the stake each claimant held when claiming.
	ClaimedStake uint64
	Refunded     uint64
	Closed       bool
}

// Remaining returns the escrowed amount not yet paid out or refunded.
func (b *Bribe) Remaining() uint64 {
	if b.Closed || b.Claimed >= b.Amount {
		return 0
	}
	return b.Amount - b.Claimed
}

// BribeClaim is the receipt preventing a staker from claiming a bribe twice.
type BribeClaim struct {
	ID     common.Hash
	Bribe  common.Hash
	Staker [20]byte
	Amount uint64
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func addTag(tags []string, tag string) []string {
	if containsTag(tags, tag) {
		return tags
	}
	return append(append([]string{}, tags...), tag)
}

func removeTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func hasTagPrefix(prefix, tags []string) bool {
	if len(tags) < len(prefix) {
		return false
	}
	for i := range prefix {
		if prefix[i] != tags[i] {
			return false
		}
	}
	return true
}
