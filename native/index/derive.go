package index

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/native/bank"
)

// DeriveKinds lists the record kinds Derive understands.
var DeriveKinds = []string{"forest", "authority", "custody", "tree", "node", "note", "stake", "bribe", "claim", "mint", "wallet"}

// Derive computes a record id from textual arguments, as accepted by the
// command line and the HTTP derive endpoint. Node paths are slash separated
// tags below the root tag.
func Derive(kind string, args map[string]string) (common.Hash, error) {
	p := &requestParser{}
	var id common.Hash
	switch kind {
	case "forest":
		id = ForestID(p.key(args["key"]))
	case "authority":
		id = ForestAuthority(p.hash("forest", args["forest"]))
	case "custody":
		id = VoteCustodyID(p.hash("forest", args["forest"]), p.hash("mint", args["mint"]))
	case "tree":
		id = TreeID(p.hash("forest", args["forest"]), args["tag"])
	case "node":
		var path []string
		if trimmed := strings.Trim(args["path"], "/"); trimmed != "" {
			path = strings.Split(trimmed, "/")
		}
		id = NodeIDForPath(p.hash("forest", args["forest"]), args["root"], path...)
	case "note":
		id = NoteID(p.hash("forest", args["forest"]), p.key(args["key"]))
	case "stake":
		id = StakeID(p.hash("note", args["note"]), p.address("staker", args["staker"]))
	case "bribe":
		id = BribeID(p.hash("node", args["node"]), p.address("briber", args["briber"]))
	case "claim":
		id = ClaimID(p.hash("bribe", args["bribe"]), p.address("staker", args["staker"]))
	case "mint":
		if args["seed"] == "" {
			return common.Hash{}, fmt.Errorf("%w: seed required", ErrInvalidRequest)
		}
		id = bank.MintID([]byte(args["seed"]))
	case "wallet":
		id = bank.WalletID(p.hash("mint", args["mint"]), p.address("owner", args["owner"]))
	default:
		return common.Hash{}, fmt.Errorf("%w: unknown derivation %q", ErrInvalidRequest, kind)
	}
	if p.err != nil {
		return common.Hash{}, p.err
	}
	return id, nil
}
