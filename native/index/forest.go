package index

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
)

// ForestArgs carries the mutable forest configuration.
type ForestArgs struct {
	Admin           [20]byte
	TreeCreationFee uint64
	VoteMint        common.Hash
}

// CreateForest registers a forest under key and opens the custody account
// that will hold stake for it. The vote mint must already exist.
func (e *Engine) CreateForest(signer [20]byte, key [32]byte, args ForestArgs) (*Forest, error) {
	forest, _, err := e.createForest(signer, key, args)
	return forest, err
}

func (e *Engine) createForest(signer [20]byte, key [32]byte, args ForestArgs) (*Forest, *state.Receipt, error) {
	id := ForestID(key)
	custody := VoteCustodyID(id, args.VoteMint)
	var forest *Forest
	receipt, err := e.execute(HandlerCreateForest, []common.Hash{id, custody, args.VoteMint}, func(tx *state.Tx) error {
		if _, err := e.ledger.Mint(tx, args.VoteMint); err != nil {
			return err
		}
		f := &Forest{
			ID:              id,
			Key:             key,
			Admin:           args.Admin,
			TreeCreationFee: args.TreeCreationFee,
			VoteMint:        args.VoteMint,
		}
		var err error
		f.VoteCustody, err = e.ledger.CreateCustody(tx, args.VoteMint, ForestAuthority(id), voteLabel, signer)
		if err != nil {
			return err
		}
		if err := create(tx, id, KindForest, signer, f); err != nil {
			return err
		}
		tx.Emit(forestEvent(EventTypeForestCreated, f))
		forest = f
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return forest, receipt, nil
}

// SetForest updates admin and fee. Only the current admin may call it. The
// vote mint is fixed once stake may exist, so args.VoteMint is ignored.
func (e *Engine) SetForest(signer [20]byte, id common.Hash, args ForestArgs) (*Forest, error) {
	forest, _, err := e.setForest(signer, id, args)
	return forest, err
}

func (e *Engine) setForest(signer [20]byte, id common.Hash, args ForestArgs) (*Forest, *state.Receipt, error) {
	var forest *Forest
	receipt, err := e.execute(HandlerSetForest, []common.Hash{id}, func(tx *state.Tx) error {
		f, err := loadForest(tx, id)
		if err != nil {
			return err
		}
		if f.Admin != signer {
			return ErrUnauthorized
		}
		f.Admin = args.Admin
		f.TreeCreationFee = args.TreeCreationFee
		if err := save(tx, id, KindForest, f); err != nil {
			return err
		}
		tx.Emit(forestEvent(EventTypeForestUpdated, f))
		forest = f
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return forest, receipt, nil
}
