package index

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/native/bank"
)

// CreateTree opens a tree tagged tag inside forest together with its root
// node. The forest's tree creation fee moves from the signer's wallet to the
// admin's wallet.
func (e *Engine) CreateTree(signer [20]byte, forest common.Hash, tag string) (*Tree, *Node, error) {
	tree, root, _, err := e.createTree(signer, forest, tag)
	return tree, root, err
}

func (e *Engine) createTree(signer [20]byte, forestID common.Hash, tag string) (*Tree, *Node, *state.Receipt, error) {
	if err := e.checkTag(tag); err != nil {
		return nil, nil, nil, err
	}
	treeID := TreeID(forestID, tag)
	rootID := RootNodeID(treeID, tag)
	var (
		tree *Tree
		root *Node
	)
	receipt, err := e.execute(HandlerCreateTree, []common.Hash{forestID, treeID, rootID}, func(tx *state.Tx) error {
		forest, err := loadForest(tx, forestID)
		if err != nil {
			return err
		}
		if forest.TreeCreationFee > 0 {
			adminWallet, err := e.ledger.OpenWallet(tx, forest.VoteMint, forest.Admin, signer)
			if err != nil {
				return err
			}
			from := bank.WalletID(forest.VoteMint, signer)
			if err := e.ledger.Transfer(tx, from, adminWallet, forest.TreeCreationFee, bank.SignerAuthority(signer)); err != nil {
				return err
			}
		}
		t := &Tree{ID: treeID, Forest: forestID, RootNode: rootID, Tag: tag}
		r := &Node{ID: rootID, Tree: treeID, IsRoot: true, Tag: tag, Tags: []string{tag}}
		if err := create(tx, treeID, KindTree, signer, t); err != nil {
			return err
		}
		if err := create(tx, rootID, KindNode, signer, r); err != nil {
			return err
		}
		tx.Emit(treeCreatedEvent(t, forest.TreeCreationFee))
		tree, root = t, r
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return tree, root, receipt, nil
}

// CreateNode creates the child of parent introducing tag. The node is not
// attached; see AttachNode.
func (e *Engine) CreateNode(signer [20]byte, tree, parent common.Hash, tag string) (*Node, error) {
	node, _, err := e.createNode(signer, tree, parent, tag)
	return node, err
}

func (e *Engine) createNode(signer [20]byte, treeID, parentID common.Hash, tag string) (*Node, *state.Receipt, error) {
	if err := e.checkTag(tag); err != nil {
		return nil, nil, err
	}
	id := NodeID(treeID, parentID, tag)
	var node *Node
	receipt, err := e.execute(HandlerCreateNode, []common.Hash{treeID, parentID, id}, func(tx *state.Tx) error {
		if _, err := loadTree(tx, treeID); err != nil {
			return err
		}
		parent, err := loadNode(tx, parentID)
		if err != nil {
			return err
		}
		if parent.Tree != treeID {
			return fmt.Errorf("%w: parent belongs to tree %s", ErrInvalidNode, parent.Tree.Hex())
		}
		if containsTag(parent.NotTags, tag) || containsTag(parent.Tags, tag) {
			return fmt.Errorf("%w: tag %q excluded under parent", ErrTagsMismatch, tag)
		}
		tags := make([]string, 0, len(parent.Tags)+1)
		tags = append(tags, parent.Tags...)
		n := &Node{ID: id, Tree: treeID, Parent: parentID, Tag: tag, Tags: append(tags, tag)}
		if err := create(tx, id, KindNode, signer, n); err != nil {
			return err
		}
		tx.Emit(nodeEvent(EventTypeNodeCreated, n))
		node = n
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return node, receipt, nil
}

// AttachNode links child into the children of parent while capacity remains.
func (e *Engine) AttachNode(signer [20]byte, parent, child common.Hash) error {
	_, err := e.attachNode(signer, parent, child)
	return err
}

func (e *Engine) attachNode(_ [20]byte, parentID, childID common.Hash) (*state.Receipt, error) {
	return e.execute(HandlerAttachNode, []common.Hash{parentID, childID}, func(tx *state.Tx) error {
		parent, err := loadNode(tx, parentID)
		if err != nil {
			return err
		}
		child, err := loadNode(tx, childID)
		if err != nil {
			return err
		}
		if child.IsRoot || child.Parent != parent.ID || child.Tree != parent.Tree {
			return ErrNotAChild
		}
		if len(child.Tags) != len(parent.Tags)+1 || !hasTagPrefix(parent.Tags, child.Tags) {
			return ErrTagsMismatch
		}
		if parent.childIndex(child.ID) >= 0 {
			return ErrAlreadyAChild
		}
		siblings, err := loadChildren(tx, parent, common.Hash{})
		if err != nil {
			return err
		}
		for _, s := range siblings {
			if s.Tag == child.Tag {
				return ErrAlreadyAChild
			}
		}
		if len(parent.Children) >= e.params.NodeCapacity {
			return ErrNodeFull
		}
		if err := checkExclusions(tx, child, siblings); err != nil {
			return err
		}
		child.NotTags = nil
		for _, s := range siblings {
			child.NotTags = addTag(child.NotTags, s.Tag)
			s.NotTags = addTag(s.NotTags, child.Tag)
			if err := save(tx, s.ID, KindNode, s); err != nil {
				return err
			}
		}
		parent.Children = append(parent.Children, child.ID)
		if err := save(tx, parent.ID, KindNode, parent); err != nil {
			return err
		}
		if err := save(tx, child.ID, KindNode, child); err != nil {
			return err
		}
		tx.Emit(nodeEvent(EventTypeNodeAttached, child))
		return nil
	})
}

// ReplaceNode evicts incumbent from a full parent in favour of challenger,
// which must carry strictly more stake. The challenger takes the vacated slot.
func (e *Engine) ReplaceNode(signer [20]byte, parent, incumbent, challenger common.Hash) error {
	_, err := e.replaceNode(signer, parent, incumbent, challenger)
	return err
}

func (e *Engine) replaceNode(_ [20]byte, parentID, incumbentID, challengerID common.Hash) (*state.Receipt, error) {
	return e.execute(HandlerReplaceNode, []common.Hash{parentID, incumbentID, challengerID}, func(tx *state.Tx) error {
		parent, err := loadNode(tx, parentID)
		if err != nil {
			return err
		}
		incumbent, err := loadNode(tx, incumbentID)
		if err != nil {
			return err
		}
		challenger, err := loadNode(tx, challengerID)
		if err != nil {
			return err
		}
		if incumbent.IsRoot || incumbent.Parent != parent.ID || challenger.IsRoot || challenger.Parent != parent.ID {
			return ErrNotAChild
		}
		slot := parent.childIndex(incumbent.ID)
		if slot < 0 {
			return ErrNotAChild
		}
		if len(parent.Children) < e.params.NodeCapacity {
			return ErrNodeNotFull
		}
		if challenger.Stake <= incumbent.Stake {
			return fmt.Errorf("%w: challenger %d, incumbent %d", ErrNotEnoughStake, challenger.Stake, incumbent.Stake)
		}
		if parent.childIndex(challenger.ID) >= 0 {
			return ErrAlreadyAChild
		}
		siblings, err := loadChildren(tx, parent, incumbent.ID)
		if err != nil {
			return err
		}
		if err := checkExclusions(tx, challenger, siblings); err != nil {
			return err
		}
		challenger.NotTags = nil
		for _, s := range siblings {
			s.NotTags = addTag(removeTag(s.NotTags, incumbent.Tag), challenger.Tag)
			challenger.NotTags = addTag(challenger.NotTags, s.Tag)
			if err := save(tx, s.ID, KindNode, s); err != nil {
				return err
			}
		}
		incumbent.NotTags = nil
		parent.Children[slot] = challenger.ID
		for _, n := range []*Node{parent, incumbent, challenger} {
			if err := save(tx, n.ID, KindNode, n); err != nil {
				return err
			}
		}
		tx.Emit(nodeReplacedEvent(parent.ID, incumbent, challenger))
		return nil
	})
}

// loadChildren loads every attached child of parent except skip.
func loadChildren(tx *state.Tx, parent *Node, skip common.Hash) ([]*Node, error) {
	out := make([]*Node, 0, len(parent.Children))
	for _, id := range parent.Children {
		if id == skip {
			continue
		}
		child, err := loadNode(tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// checkExclusions fails with ErrTagsMismatch when linking node beside
// siblings would exclude a tag that one of their attached children already
// introduces, in either direction.
func checkExclusions(tx *state.Tx, node *Node, siblings []*Node) error {
	own, err := introducedTags(tx, node)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if containsTag(own, s.Tag) {
			return fmt.Errorf("%w: %q already introduced below %q", ErrTagsMismatch, s.Tag, node.Tag)
		}
		theirs, err := introducedTags(tx, s)
		if err != nil {
			return err
		}
		if containsTag(theirs, node.Tag) {
			return fmt.Errorf("%w: %q already introduced below %q", ErrTagsMismatch, node.Tag, s.Tag)
		}
	}
	return nil
}

// introducedTags returns the tags introduced by the attached children of n.
func introducedTags(tx *state.Tx, n *Node) ([]string, error) {
	children, err := loadChildren(tx, n, common.Hash{})
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(children))
	for _, c := range children {
		tags = append(tags, c.Tag)
	}
	return tags, nil
}
