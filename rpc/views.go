package rpc

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/crypto"
	"dipindex/native/bank"
	"dipindex/native/index"
)

type ForestView struct {
	ID              string `json:"id"`
	Admin           string `json:"admin"`
	TreeCreationFee uint64 `json:"treeCreationFee"`
	VoteMint        string `json:"voteMint"`
	VoteCustody     string `json:"voteCustody"`
}

type TreeView struct {
	ID       string `json:"id"`
	Forest   string `json:"forest"`
	RootNode string `json:"rootNode"`
	Tag      string `json:"tag"`
}

type NodeView struct {
	ID       string   `json:"id"`
	Tree     string   `json:"tree"`
	Parent   string   `json:"parent,omitempty"`
	IsRoot   bool     `json:"isRoot"`
	Tag      string   `json:"tag"`
	Tags     []string `json:"tags"`
	NotTags  []string `json:"notTags"`
	Note     string   `json:"note,omitempty"`
	Stake    uint64   `json:"stake"`
	Children []string `json:"children"`
}

type NoteView struct {
	ID          string `json:"id"`
	Forest      string `json:"forest"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Website     string `json:"website,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Stake       uint64 `json:"stake"`
	Location    string `json:"location,omitempty"`
}

type StakeView struct {
	ID     string `json:"id"`
	Note   string `json:"note"`
	Staker string `json:"staker"`
	Stake  uint64 `json:"stake"`
}

type BribeView struct {
	ID        string `json:"id"`
	Node      string `json:"node"`
	Briber    string `json:"briber"`
	Forest    string `json:"forest"`
	Custody   string `json:"custody"`
	Amount    uint64 `json:"amount"`
	Claimed   uint64 `json:"claimed"`
	Claims    uint64 `json:"claims"`
	Remaining uint64 `json:"remaining"`
	Refunded  uint64 `json:"refunded"`
	Closed    bool   `json:"closed"`
}

type AccountView struct {
	ID      string `json:"id"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Label   string `json:"label,omitempty"`
	Balance uint64 `json:"balance"`
}

func hashString(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func addressString(a [20]byte) string { return crypto.AddressFromRaw(a).String() }

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func newForestView(f *index.Forest) ForestView {
	return ForestView{
		ID:              f.ID.Hex(),
		Admin:           addressString(f.Admin),
		TreeCreationFee: f.TreeCreationFee,
		VoteMint:        f.VoteMint.Hex(),
		VoteCustody:     f.VoteCustody.Hex(),
	}
}

func newTreeView(t *index.Tree) TreeView {
	return TreeView{ID: t.ID.Hex(), Forest: t.Forest.Hex(), RootNode: t.RootNode.Hex(), Tag: t.Tag}
}

func newNodeView(n *index.Node) NodeView {
	children := make([]string, len(n.Children))
	for i, child := range n.Children {
		children[i] = child.Hex()
	}
	return NodeView{
		ID:       n.ID.Hex(),
		Tree:     n.Tree.Hex(),
		Parent:   hashString(n.Parent),
		IsRoot:   n.IsRoot,
		Tag:      n.Tag,
		Tags:     nonNil(n.Tags),
		NotTags:  nonNil(n.NotTags),
		Note:     hashString(n.Note),
		Stake:    n.Stake,
		Children: children,
	}
}

func newNoteView(n *index.Note) NoteView {
	return NoteView{
		ID:          n.ID.Hex(),
		Forest:      n.Forest.Hex(),
		Author:      addressString(n.Author),
		Title:       n.Title,
		Website:     n.Website,
		Image:       n.Image,
		Description: n.Description,
		Stake:       n.Stake,
		Location:    hashString(n.Location),
	}
}

func newStakeView(s *index.StakeAccount) StakeView {
	return StakeView{ID: s.ID.Hex(), Note: s.Note.Hex(), Staker: addressString(s.Staker), Stake: s.Stake}
}

func newBribeView(b *index.Bribe) BribeView {
	return BribeView{
		ID:        b.ID.Hex(),
		Node:      b.Node.Hex(),
		Briber:    addressString(b.Briber),
		Forest:    b.Forest.Hex(),
		Custody:   b.Custody.Hex(),
		Amount:    b.Amount,
		Claimed:   b.Claimed,
		Claims:    b.Claims,
		Remaining: b.Remaining(),
		Refunded:  b.Refunded,
		Closed:    b.Closed,
	}
}

func newAccountView(a *bank.TokenAccount) AccountView {
	return AccountView{ID: a.ID.Hex(), Mint: a.Mint.Hex(), Owner: a.Owner.Hex(), Label: a.Label, Balance: a.Balance}
}
