package index

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/native/bank"
)

// CreateStake opens the signer's stake account on note. Opening an existing
// account returns it unchanged.
func (e *Engine) CreateStake(signer [20]byte, note common.Hash) (*StakeAccount, error) {
	stake, _, err := e.createStake(signer, note)
	return stake, err
}

func (e *Engine) createStake(signer [20]byte, noteID common.Hash) (*StakeAccount, *state.Receipt, error) {
	id := StakeID(noteID, signer)
	var stake *StakeAccount
	receipt, err := e.execute(HandlerCreateStake, []common.Hash{noteID, id}, func(tx *state.Tx) error {
		if _, err := loadNote(tx, noteID); err != nil {
			return err
		}
		exists, err := tx.Exists(id)
		if err != nil {
			return err
		}
		if exists {
			stake, err = loadStake(tx, id)
			return err
		}
		s := &StakeAccount{ID: id, Note: noteID, Staker: signer}
		if err := create(tx, id, KindStake, signer, s); err != nil {
			return err
		}
		tx.Emit(stakeEvent(EventTypeStakeCreated, s, ""))
		stake = s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stake, receipt, nil
}

// UpdateStake adds delta to the signer's stake on note. A positive delta
// moves vote tokens from the signer's wallet into forest custody; a negative
// one pays them back. The note, and the node holding it, move by the same
// amount.
func (e *Engine) UpdateStake(signer [20]byte, note common.Hash, delta *big.Int) (*StakeAccount, error) {
	stake, _, err := e.updateStake(signer, note, delta)
	return stake, err
}

func (e *Engine) updateStake(signer [20]byte, noteID common.Hash, delta *big.Int) (*StakeAccount, *state.Receipt, error) {
	if delta == nil {
		delta = new(big.Int)
	}
	magnitude := new(big.Int).Abs(delta)
	if !magnitude.IsUint64() {
		return nil, nil, fmt.Errorf("%w: delta %s", ErrAmountOverflow, delta)
	}
	amount := magnitude.Uint64()
	withdraw := delta.Sign() < 0
	id := StakeID(noteID, signer)
	var stake *StakeAccount
	receipt, err := e.execute(HandlerUpdateStake, []common.Hash{noteID, id}, func(tx *state.Tx) error {
		note, err := loadNote(tx, noteID)
		if err != nil {
			return err
		}
		s, err := loadStake(tx, id)
		if err != nil {
			return err
		}
		forest, err := loadForest(tx, note.Forest)
		if err != nil {
			return err
		}
		var node *Node
		if note.Located() {
			if node, err = loadNode(tx, note.Location); err != nil {
				return err
			}
			if node.Note != note.ID {
				return fmt.Errorf("%w: node %s does not hold note", ErrInvalidNode, node.ID.Hex())
			}
		}
		wallet := bank.WalletID(forest.VoteMint, signer)
		if withdraw {
			if s.Stake < amount || note.Stake < amount || (node != nil && node.Stake < amount) {
				return fmt.Errorf("%w: withdraw %d of %d", ErrNotEnoughStake, amount, s.Stake)
			}
			s.Stake -= amount
			note.Stake -= amount
			if node != nil {
				node.Stake -= amount
			}
			if _, err := e.ledger.OpenWallet(tx, forest.VoteMint, signer, signer); err != nil {
				return err
			}
			auth := bank.SeedAuthority(ForestAuthoritySeeds(forest.ID)...)
			if err := e.ledger.Transfer(tx, forest.VoteCustody, wallet, amount, auth); err != nil {
				return err
			}
		} else {
			if s.Stake > math.MaxUint64-amount || note.Stake > math.MaxUint64-amount ||
				(node != nil && node.Stake > math.MaxUint64-amount) {
				return ErrAmountOverflow
			}
			if err := e.ledger.Transfer(tx, wallet, forest.VoteCustody, amount, bank.SignerAuthority(signer)); err != nil {
				return err
			}
			s.Stake += amount
			note.Stake += amount
			if node != nil {
				node.Stake += amount
			}
		}
		if err := save(tx, s.ID, KindStake, s); err != nil {
			return err
		}
		if err := save(tx, note.ID, KindNote, note); err != nil {
			return err
		}
		if node != nil {
			if err := save(tx, node.ID, KindNode, node); err != nil {
				return err
			}
		}
		tx.Emit(stakeEvent(EventTypeStakeUpdated, s, delta.String()))
		stake = s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.observeStakeLocked(stake.Note)
	return stake, receipt, nil
}

// CloseStake removes an empty stake account, releasing it to its payer.
func (e *Engine) CloseStake(signer [20]byte, note common.Hash) error {
	_, err := e.closeStake(signer, note)
	return err
}

func (e *Engine) closeStake(signer [20]byte, noteID common.Hash) (*state.Receipt, error) {
	id := StakeID(noteID, signer)
	return e.execute(HandlerCloseStake, []common.Hash{noteID, id}, func(tx *state.Tx) error {
		s, err := loadStake(tx, id)
		if err != nil {
			return err
		}
		if s.Stake != 0 {
			return fmt.Errorf("%w: %d remaining", ErrStakeNotEmpty, s.Stake)
		}
		meta, err := tx.Meta(id)
		if err != nil {
			return err
		}
		if meta.Payer != signer {
			return ErrUnauthorized
		}
		if err := tx.Close(id, KindStake, ModuleName, meta.Payer); err != nil {
			return err
		}
		tx.Emit(stakeEvent(EventTypeStakeClosed, s, ""))
		return nil
	})
}

func (e *Engine) observeStakeLocked(noteID common.Hash) {
	if e.metrics == nil {
		return
	}
	_ = e.store.View(func(tx *state.Tx) error {
		note, err := loadNote(tx, noteID)
		if err != nil {
			return err
		}
		forest, err := loadForest(tx, note.Forest)
		if err != nil {
			return err
		}
		balance, err := e.ledger.Balance(tx, forest.VoteCustody)
		if err != nil {
			return err
		}
		e.metrics.SetStakeLocked(forest.ID.Hex(), balance)
		return nil
	})
}
