package index

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/types"
	"dipindex/crypto"
)

const (
	EventTypeForestCreated = "index.forest.created"
	EventTypeForestUpdated = "index.forest.updated"
	EventTypeTreeCreated   = "index.tree.created"
	EventTypeNodeCreated   = "index.node.created"
	EventTypeNodeAttached  = "index.node.attached"
	EventTypeNodeReplaced  = "index.node.replaced"
	EventTypeNoteCreated   = "index.note.created"
	EventTypeNoteAttached  = "index.note.attached"
	EventTypeNoteMoved     = "index.note.moved"
	EventTypeNoteReplaced  = "index.note.replaced"
	EventTypeStakeCreated  = "index.stake.created"
	EventTypeStakeUpdated  = "index.stake.updated"
	EventTypeStakeClosed   = "index.stake.closed"
	EventTypeBribeSet      = "index.bribe.set"
	EventTypeBribeClaimed  = "index.bribe.claimed"
	EventTypeBribeClosed   = "index.bribe.closed"
)

type indexEvent struct {
	evt *types.Event
}

func (e indexEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e indexEvent) Event() *types.Event { return e.evt }

func newEvent(kind string, attrs map[string]string) indexEvent {
	return indexEvent{evt: &types.Event{Type: kind, Attributes: attrs}}
}

func addr(a [20]byte) string { return crypto.AddressFromRaw(a).String() }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func forestEvent(kind string, f *Forest) indexEvent {
	return newEvent(kind, map[string]string{
		"forest":          f.ID.Hex(),
		"admin":           addr(f.Admin),
		"treeCreationFee": u64(f.TreeCreationFee),
		"voteMint":        f.VoteMint.Hex(),
	})
}

func treeCreatedEvent(t *Tree, fee uint64) indexEvent {
	return newEvent(EventTypeTreeCreated, map[string]string{
		"forest":   t.Forest.Hex(),
		"tree":     t.ID.Hex(),
		"rootNode": t.RootNode.Hex(),
		"tag":      t.Tag,
		"fee":      u64(fee),
	})
}

func nodeEvent(kind string, n *Node) indexEvent {
	return newEvent(kind, map[string]string{
		"tree":   n.Tree.Hex(),
		"node":   n.ID.Hex(),
		"parent": n.Parent.Hex(),
		"tags":   strings.Join(n.Tags, "/"),
	})
}

func nodeReplacedEvent(parent common.Hash, incumbent, challenger *Node) indexEvent {
	return newEvent(EventTypeNodeReplaced, map[string]string{
		"parent":     parent.Hex(),
		"incumbent":  incumbent.ID.Hex(),
		"challenger": challenger.ID.Hex(),
	})
}

func noteCreatedEvent(n *Note) indexEvent {
	return newEvent(EventTypeNoteCreated, map[string]string{
		"forest": n.Forest.Hex(),
		"note":   n.ID.Hex(),
		"author": addr(n.Author),
		"title":  n.Title,
	})
}

func noteLocationEvent(kind string, note common.Hash, from, to common.Hash) indexEvent {
	attrs := map[string]string{"note": note.Hex(), "node": to.Hex()}
	if from != (common.Hash{}) {
		attrs["from"] = from.Hex()
	}
	return newEvent(kind, attrs)
}

func noteReplacedEvent(node common.Hash, incumbent, challenger *Note) indexEvent {
	return newEvent(EventTypeNoteReplaced, map[string]string{
		"node":       node.Hex(),
		"incumbent":  incumbent.ID.Hex(),
		"challenger": challenger.ID.Hex(),
	})
}

func stakeEvent(kind string, s *StakeAccount, delta string) indexEvent {
	attrs := map[string]string{
		"stake":  s.ID.Hex(),
		"note":   s.Note.Hex(),
		"staker": addr(s.Staker),
		"amount": u64(s.Stake),
	}
	if delta != "" {
		attrs["delta"] = delta
	}
	return newEvent(kind, attrs)
}

func bribeSetEvent(b *Bribe, added uint64) indexEvent {
	return newEvent(EventTypeBribeSet, map[string]string{
		"bribe":  b.ID.Hex(),
		"node":   b.Node.Hex(),
		"briber": addr(b.Briber),
		"added":  u64(added),
		"amount": u64(b.Amount),
	})
}

func bribeClosedEvent(b *Bribe) indexEvent {
	return newEvent(EventTypeBribeClosed, map[string]string{
		"bribe":    b.ID.Hex(),
		"briber":   addr(b.Briber),
		"claimed":  u64(b.Claimed),
		"refunded": u64(b.Refunded),
	})
}

func bribeClaimedEvent(b *Bribe, c *BribeClaim) indexEvent {
	return newEvent(EventTypeBribeClaimed, map[string]string{
		"bribe":     b.ID.Hex(),
		"staker":    addr(c.Staker),
		"amount":    u64(c.Amount),
		"remaining": u64(b.Remaining()),
	})
}
