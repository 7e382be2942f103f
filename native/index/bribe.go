package index

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dipindex/core/state"
	"dipindex/native/bank"
)

// SetBribe escrows amount vote tokens for the stakers of whichever note holds
// node. Calling it again tops up the same bribe until the first claim.
func (e *Engine) SetBribe(signer [20]byte, node common.Hash, amount uint64) (*Bribe, error) {
	bribe, _, err := e.setBribe(signer, node, amount)
	return bribe, err
}

func (e *Engine) setBribe(signer [20]byte, nodeID common.Hash, amount uint64) (*Bribe, *state.Receipt, error) {
	if amount == 0 {
		return nil, nil, ErrInvalidAmount
	}
	id := BribeID(nodeID, signer)
	var bribe *Bribe
	receipt, err := e.execute(HandlerSetBribe, []common.Hash{nodeID, id}, func(tx *state.Tx) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		_, forest, err := forestOf(tx, node)
		if err != nil {
			return err
		}
		exists, err := tx.Exists(id)
		if err != nil {
			return err
		}
		var b *Bribe
		if exists {
			if b, err = loadBribe(tx, id); err != nil {
				return err
			}
			if b.Closed {
				return ErrBribeClosed
			}
			if b.Claims > 0 {
				return fmt.Errorf("%w: %d claims paid", ErrAlreadyClaimed, b.Claims)
			}
			if b.Amount > math.MaxUint64-amount {
				return ErrAmountOverflow
			}
			b.Amount += amount
		} else {
			custody, err := e.ledger.CreateCustody(tx, forest.VoteMint, ForestAuthority(forest.ID), id.Bytes(), signer)
			if err != nil {
				return err
			}
			b = &Bribe{ID: id, Node: nodeID, Briber: signer, Forest: forest.ID, Custody: custody, Amount: amount}
		}
		wallet := bank.WalletID(forest.VoteMint, signer)
		if err := e.ledger.Transfer(tx, wallet, b.Custody, amount, bank.SignerAuthority(signer)); err != nil {
			return err
		}
		if exists {
			err = save(tx, id, KindBribe, b)
		} else {
			err = create(tx, id, KindBribe, signer, b)
		}
		if err != nil {
			return err
		}
		tx.Emit(bribeSetEvent(b, amount))
		bribe = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.metrics.SetBribeEscrowed(bribe.ID.Hex(), bribe.Remaining())
	return bribe, receipt, nil
}

// ClaimBribe pays the signer a share of briber's bribe on node proportional
// to the signer's stake on the note currently held by node. Each staker can
// claim a bribe once.
func (e *Engine) ClaimBribe(signer [20]byte, node, note common.Hash, briber [20]byte) (*BribeClaim, error) {
	claim, _, err := e.claimBribe(signer, node, note, briber)
	return claim, err
}

func (e *Engine) claimBribe(signer [20]byte, nodeID, noteID common.Hash, briber [20]byte) (*BribeClaim, *state.Receipt, error) {
	bribeID := BribeID(nodeID, briber)
	stakeID := StakeID(noteID, signer)
	claimID := ClaimID(bribeID, signer)
	var (
		claim *BribeClaim
		bribe *Bribe
	)
	receipt, err := e.execute(HandlerClaimBribe, []common.Hash{nodeID, noteID, bribeID, stakeID, claimID}, func(tx *state.Tx) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		note, err := loadNote(tx, noteID)
		if err != nil {
			return err
		}
		if node.Note != note.ID {
			return ErrNotOnNode
		}
		b, err := loadBribe(tx, bribeID)
		if err != nil {
			return err
		}
		if b.Closed {
			return ErrBribeClosed
		}
		stake, err := loadStake(tx, stakeID)
		if err != nil {
			return err
		}
		claimed, err := tx.Exists(claimID)
		if err != nil {
			return err
		}
		if claimed {
			return ErrAlreadyClaimed
		}
		if note.Stake == 0 || stake.Stake == 0 {
			return ErrNotEnoughStake
		}
		share := bribeShare(b.Amount, stake.Stake, note.Stake)
		if remaining := b.Remaining(); share > remaining {
			share = remaining
		}
		forest, err := loadForest(tx, b.Forest)
		if err != nil {
			return err
		}
		wallet, err := e.ledger.OpenWallet(tx, forest.VoteMint, signer, signer)
		if err != nil {
			return err
		}
		auth := bank.SeedAuthority(ForestAuthoritySeeds(forest.ID)...)
		if err := e.ledger.Transfer(tx, b.Custody, wallet, share, auth); err != nil {
			return err
		}
		b.Claimed += share
		b.Claims++
		if b.ClaimedStake > math.MaxUint64-stake.Stake {
			b.ClaimedStake = math.MaxUint64
		} else {
			b.ClaimedStake += stake.Stake
		}
		c := &BribeClaim{ID: claimID, Bribe: b.ID, Staker: signer, Amount: share}
		if err := create(tx, claimID, KindBribeClaim, signer, c); err != nil {
			return err
		}
		if err := save(tx, b.ID, KindBribe, b); err != nil {
			return err
		}
		tx.Emit(bribeClaimedEvent(b, c))
		claim, bribe = c, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.metrics.SetBribeEscrowed(bribe.ID.Hex(), bribe.Remaining())
	return claim, receipt, nil
}

// CloseBribe returns what is left of the signer's bribe on node once the
// claimants together held all of the stake now on the node's note, or the
// node holds no note. The bribe cannot be topped up or claimed afterwards.
func (e *Engine) CloseBribe(signer [20]byte, node common.Hash) (*Bribe, error) {
	bribe, _, err := e.closeBribe(signer, node)
	return bribe, err
}

func (e *Engine) closeBribe(signer [20]byte, nodeID common.Hash) (*Bribe, *state.Receipt, error) {
	id := BribeID(nodeID, signer)
	var bribe *Bribe
	receipt, err := e.execute(HandlerCloseBribe, []common.Hash{nodeID, id}, func(tx *state.Tx) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		b, err := loadBribe(tx, id)
		if err != nil {
			return err
		}
		if b.Closed {
			return ErrBribeClosed
		}
		if node.HasNote() {
			note, err := loadNote(tx, node.Note)
			if err != nil {
				return err
			}
			if b.ClaimedStake < note.Stake {
				return fmt.Errorf("%w: %d of %d staked claimed", ErrBribeOpen, b.ClaimedStake, note.Stake)
			}
		}
		forest, err := loadForest(tx, b.Forest)
		if err != nil {
			return err
		}
		refund := b.Remaining()
		if refund > 0 {
			wallet, err := e.ledger.OpenWallet(tx, forest.VoteMint, signer, signer)
			if err != nil {
				return err
			}
			auth := bank.SeedAuthority(ForestAuthoritySeeds(forest.ID)...)
			if err := e.ledger.Transfer(tx, b.Custody, wallet, refund, auth); err != nil {
				return err
			}
		}
		b.Refunded = refund
		b.Closed = true
		if err := save(tx, id, KindBribe, b); err != nil {
			return err
		}
		tx.Emit(bribeClosedEvent(b))
		bribe = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.metrics.SetBribeEscrowed(bribe.ID.Hex(), 0)
	return bribe, receipt, nil
}

// bribeShare computes floor(amount * stake / total) without overflowing.
func bribeShare(amount, stake, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	share := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(stake))
	share.Div(share, uint256.NewInt(total))
	if !share.IsUint64() {
		return math.MaxUint64
	}
	return share.Uint64()
}
