package index

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"dipindex/core/state"
	"dipindex/core/types"
	"dipindex/crypto"
	"dipindex/native/bank"
)

const (
	HandlerCreateForest = "create_forest"
	HandlerSetForest    = "set_forest"
	HandlerCreateTree   = "create_tree"
	HandlerCreateNode   = "create_node"
	HandlerAttachNode   = "attach_node"
	HandlerReplaceNode  = "replace_node"
	HandlerCreateNote   = "create_note"
	HandlerAttachNote   = "attach_note"
	HandlerMoveNote     = "move_note"
	HandlerReplaceNote  = "replace_note"
	HandlerCreateStake  = "create_stake"
	HandlerUpdateStake  = "update_stake"
	HandlerCloseStake   = "close_stake"
	HandlerSetBribe     = "set_bribe"
	HandlerClaimBribe   = "claim_bribe"
	HandlerCloseBribe   = "close_bribe"

	HandlerCreateMint = "create_mint"
	HandlerMintTo     = "mint_to"
	HandlerOpenWallet = "open_wallet"
)

// Handlers lists every request handler name in dispatch order.
var Handlers = []string{
	HandlerCreateForest, HandlerSetForest, HandlerCreateTree, HandlerCreateNode,
	HandlerAttachNode, HandlerReplaceNode, HandlerCreateNote, HandlerAttachNote,
	HandlerMoveNote, HandlerReplaceNote, HandlerCreateStake, HandlerUpdateStake,
	HandlerCloseStake, HandlerSetBribe, HandlerClaimBribe, HandlerCloseBribe,
	HandlerCreateMint, HandlerMintTo, HandlerOpenWallet,
}

// Request is the wire form of a handler invocation. Record ids are 0x
// prefixed hex, participants are dip bech32 or 0x hex addresses. For
// replace_node Incumbent and Challenger name nodes, for replace_note notes.
type Request struct {
	Handler string `json:"handler" yaml:"handler"`
	Signer  string `json:"signer" yaml:"signer"`

	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Forest     string `json:"forest,omitempty" yaml:"forest,omitempty"`
	Tree       string `json:"tree,omitempty" yaml:"tree,omitempty"`
	Parent     string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Node       string `json:"node,omitempty" yaml:"node,omitempty"`
	Child      string `json:"child,omitempty" yaml:"child,omitempty"`
	From       string `json:"from,omitempty" yaml:"from,omitempty"`
	To         string `json:"to,omitempty" yaml:"to,omitempty"`
	Note       string `json:"note,omitempty" yaml:"note,omitempty"`
	Incumbent  string `json:"incumbent,omitempty" yaml:"incumbent,omitempty"`
	Challenger string `json:"challenger,omitempty" yaml:"challenger,omitempty"`
	Briber     string `json:"briber,omitempty" yaml:"briber,omitempty"`
	Mint       string `json:"mint,omitempty" yaml:"mint,omitempty"`
	Owner      string `json:"owner,omitempty" yaml:"owner,omitempty"`

	Admin           string `json:"admin,omitempty" yaml:"admin,omitempty"`
	TreeCreationFee uint64 `json:"treeCreationFee,omitempty" yaml:"treeCreationFee,omitempty"`
	VoteMint        string `json:"voteMint,omitempty" yaml:"voteMint,omitempty"`
	Tag             string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Title           string `json:"title,omitempty" yaml:"title,omitempty"`
	Website         string `json:"website,omitempty" yaml:"website,omitempty"`
	Image           string `json:"image,omitempty" yaml:"image,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Delta           string `json:"delta,omitempty" yaml:"delta,omitempty"`
	Amount          uint64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Seed            string `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Result reports the committed effects of a request.
type Result struct {
	Handler   string            `json:"handler"`
	RequestID string            `json:"requestId"`
	Attempts  int               `json:"attempts"`
	Writes    int               `json:"writes"`
	Digest    string            `json:"digest"`
	Records   map[string]string `json:"records,omitempty"`
	Amount    *uint64           `json:"amount,omitempty"`
	Events    []*types.Event    `json:"events,omitempty"`
}

type requestParser struct {
	err error
}

func (p *requestParser) hash(field, value string) common.Hash {
	if p.err != nil {
		return common.Hash{}
	}
	raw, err := hexutil.Decode(strings.TrimSpace(value))
	if err != nil || len(raw) != common.HashLength {
		p.err = fmt.Errorf("%w: %s must be a 32 byte 0x hex id", ErrInvalidRequest, field)
		return common.Hash{}
	}
	return common.BytesToHash(raw)
}

func (p *requestParser) key(value string) [32]byte {
	return p.hash("key", value)
}

func (p *requestParser) address(field, value string) [20]byte {
	if p.err != nil {
		return [20]byte{}
	}
	addr, err := ParseParticipant(value)
	if err != nil {
		p.err = fmt.Errorf("%w: %s: %v", ErrInvalidRequest, field, err)
	}
	return addr
}

func (p *requestParser) delta(value string) *big.Int {
	if p.err != nil {
		return nil
	}
	d, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		p.err = fmt.Errorf("%w: delta %q is not a decimal integer", ErrInvalidRequest, value)
		return nil
	}
	return d
}

// ParseParticipant accepts a dip bech32 address or a 0x prefixed hex address.
func ParseParticipant(value string) ([20]byte, error) {
	value = strings.TrimSpace(value)
	if common.IsHexAddress(value) && strings.HasPrefix(value, "0x") {
		return common.HexToAddress(value), nil
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// Dispatch parses req and runs the named handler.
func (e *Engine) Dispatch(req Request) (*Result, error) {
	p := &requestParser{}
	signer := p.address("signer", req.Signer)
	if p.err != nil {
		return nil, p.err
	}
	records := make(map[string]string)
	var (
		receipt *state.Receipt
		amount  *uint64
		err     error
	)
	switch req.Handler {
	case HandlerCreateForest:
		key, admin, mint := p.key(req.Key), p.address("admin", req.Admin), p.hash("voteMint", req.VoteMint)
		if p.err != nil {
			return nil, p.err
		}
		var f *Forest
		f, receipt, err = e.createForest(signer, key, ForestArgs{Admin: admin, TreeCreationFee: req.TreeCreationFee, VoteMint: mint})
		if f != nil {
			records["forest"] = f.ID.Hex()
			records["voteCustody"] = f.VoteCustody.Hex()
		}
	case HandlerSetForest:
		forest, admin := p.hash("forest", req.Forest), p.address("admin", req.Admin)
		if p.err != nil {
			return nil, p.err
		}
		_, receipt, err = e.setForest(signer, forest, ForestArgs{Admin: admin, TreeCreationFee: req.TreeCreationFee})
		records["forest"] = forest.Hex()
	case HandlerCreateTree:
		forest := p.hash("forest", req.Forest)
		if p.err != nil {
			return nil, p.err
		}
		var (
			t    *Tree
			root *Node
		)
		t, root, receipt, err = e.createTree(signer, forest, req.Tag)
		if t != nil {
			records["tree"] = t.ID.Hex()
			records["rootNode"] = root.ID.Hex()
		}
	case HandlerCreateNode:
		tree, parent := p.hash("tree", req.Tree), p.hash("parent", req.Parent)
		if p.err != nil {
			return nil, p.err
		}
		var n *Node
		n, receipt, err = e.createNode(signer, tree, parent, req.Tag)
		if n != nil {
			records["node"] = n.ID.Hex()
		}
	case HandlerAttachNode:
		parent, child := p.hash("parent", req.Parent), p.hash("child", req.Child)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.attachNode(signer, parent, child)
		records["parent"], records["child"] = parent.Hex(), child.Hex()
	case HandlerReplaceNode:
		parent, inc, chal := p.hash("parent", req.Parent), p.hash("incumbent", req.Incumbent), p.hash("challenger", req.Challenger)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.replaceNode(signer, parent, inc, chal)
		records["parent"], records["incumbent"], records["challenger"] = parent.Hex(), inc.Hex(), chal.Hex()
	case HandlerCreateNote:
		forest, key := p.hash("forest", req.Forest), p.key(req.Key)
		if p.err != nil {
			return nil, p.err
		}
		var n *Note
		n, receipt, err = e.createNote(signer, forest, key, NoteContent{
			Title:       req.Title,
			Website:     req.Website,
			Image:       req.Image,
			Description: req.Description,
		})
		if n != nil {
			records["note"] = n.ID.Hex()
		}
	case HandlerAttachNote:
		node, note := p.hash("node", req.Node), p.hash("note", req.Note)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.attachNote(signer, node, note)
		records["node"], records["note"] = node.Hex(), note.Hex()
	case HandlerMoveNote:
		from, to, note := p.hash("from", req.From), p.hash("to", req.To), p.hash("note", req.Note)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.moveNote(signer, from, to, note)
		records["from"], records["to"], records["note"] = from.Hex(), to.Hex(), note.Hex()
	case HandlerReplaceNote:
		node, inc, chal := p.hash("node", req.Node), p.hash("incumbent", req.Incumbent), p.hash("challenger", req.Challenger)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.replaceNote(signer, node, inc, chal)
		records["node"], records["incumbent"], records["challenger"] = node.Hex(), inc.Hex(), chal.Hex()
	case HandlerCreateStake:
		note := p.hash("note", req.Note)
		if p.err != nil {
			return nil, p.err
		}
		var s *StakeAccount
		s, receipt, err = e.createStake(signer, note)
		if s != nil {
			records["stake"] = s.ID.Hex()
		}
	case HandlerUpdateStake:
		note, delta := p.hash("note", req.Note), p.delta(req.Delta)
		if p.err != nil {
			return nil, p.err
		}
		var s *StakeAccount
		s, receipt, err = e.updateStake(signer, note, delta)
		if s != nil {
			records["stake"] = s.ID.Hex()
			amount = &s.Stake
		}
	case HandlerCloseStake:
		note := p.hash("note", req.Note)
		if p.err != nil {
			return nil, p.err
		}
		receipt, err = e.closeStake(signer, note)
		records["stake"] = StakeID(note, signer).Hex()
	case HandlerSetBribe:
		node := p.hash("node", req.Node)
		if p.err != nil {
			return nil, p.err
		}
		var b *Bribe
		b, receipt, err = e.setBribe(signer, node, req.Amount)
		if b != nil {
			records["bribe"] = b.ID.Hex()
			records["custody"] = b.Custody.Hex()
			amount = &b.Amount
		}
	case HandlerClaimBribe:
		node, note, briber := p.hash("node", req.Node), p.hash("note", req.Note), p.address("briber", req.Briber)
		if p.err != nil {
			return nil, p.err
		}
		var c *BribeClaim
		c, receipt, err = e.claimBribe(signer, node, note, briber)
		if c != nil {
			records["claim"] = c.ID.Hex()
			amount = &c.Amount
		}
	case HandlerCloseBribe:
		node := p.hash("node", req.Node)
		if p.err != nil {
			return nil, p.err
		}
		var b *Bribe
		b, receipt, err = e.closeBribe(signer, node)
		if b != nil {
			records["bribe"] = b.ID.Hex()
			amount = &b.Refunded
		}
	case HandlerCreateMint:
		var m *bank.Mint
		m, receipt, err = e.createMint(signer, req.Seed)
		if m != nil {
			records["mint"] = m.ID.Hex()
		}
	case HandlerMintTo:
		mint, owner := p.hash("mint", req.Mint), p.address("owner", req.Owner)
		if p.err != nil {
			return nil, p.err
		}
		var wallet common.Hash
		wallet, receipt, err = e.mintTo(signer, mint, owner, req.Amount)
		records["wallet"] = wallet.Hex()
	case HandlerOpenWallet:
		mint, owner := p.hash("mint", req.Mint), p.address("owner", req.Owner)
		if p.err != nil {
			return nil, p.err
		}
		var wallet common.Hash
		wallet, receipt, err = e.openWallet(signer, mint, owner)
		records["wallet"] = wallet.Hex()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, req.Handler)
	}
	if err != nil {
		return nil, err
	}
	return newResult(req.Handler, receipt, records, amount), nil
}

func newResult(handler string, receipt *state.Receipt, records map[string]string, amount *uint64) *Result {
	res := &Result{
		Handler:   handler,
		RequestID: receipt.ID.String(),
		Attempts:  receipt.Attempts,
		Writes:    receipt.Writes,
		Digest:    hexutil.Encode(receipt.Digest[:]),
		Records:   records,
		Amount:    amount,
	}
	for _, evt := range receipt.Events {
		if typed, ok := evt.(interface{ Event() *types.Event }); ok {
			res.Events = append(res.Events, typed.Event().Clone())
		}
	}
	return res
}
