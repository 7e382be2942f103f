package index

import (
	"math/big"
	"testing"

	"dipindex/native/bank"
)

func TestStakeRoundTripConservation(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	node := f.attachedChild(root, "jazz")
	note := f.note("kind-of-blue")
	if err := f.engine.AttachNote(aliceAddr, node.ID, note.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}
	wallet := f.fund(bobAddr, 100)
	if _, err := f.engine.CreateStake(bobAddr, note.ID); err != nil {
		t.Fatalf("create stake: %v", err)
	}

	acct, err := f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(30))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if acct.Stake != 30 || f.loadNote(note.ID).Stake != 30 || f.node(node.ID).Stake != 30 {
		t.Fatalf("deposit did not reach all aggregates")
	}
	if f.balance(wallet) != 70 || f.balance(f.forest.VoteCustody) != 30 {
		t.Fatalf("unexpected balances after deposit")
	}

	if _, err := f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(-30)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := f.balance(wallet); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
	if f.balance(f.forest.VoteCustody) != 0 {
		t.Fatalf("custody should be empty")
	}
	if f.loadStake(acct.ID).Stake != 0 || f.loadNote(note.ID).Stake != 0 || f.node(node.ID).Stake != 0 {
		t.Fatalf("withdraw did not restore all aggregates")
	}
}

func TestStakeUnderflowGuard(t *testing.T) {
	f := newFixture(t, 0)
	note := f.note("kind-of-blue")
	wallet := f.fund(bobAddr, 10)
	if _, err := f.engine.CreateStake(bobAddr, note.ID); err != nil {
		t.Fatalf("create stake: %v", err)
	}
	before := len(f.recorder.Events())

	_, err := f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(-1))
	expectErr(t, err, ErrNotEnoughStake)
	if len(f.recorder.Events()) != before {
		t.Fatalf("failed update must not emit events")
	}
	if f.balance(wallet) != 10 || f.balance(f.forest.VoteCustody) != 0 {
		t.Fatalf("failed update must not move tokens")
	}
}

func TestNoteStakeIsSumOfAccounts(t *testing.T) {
	f := newFixture(t, 0)
	note := f.note("kind-of-blue")
	a := f.stake(bobAddr, note, 12)
	b := f.stake(carolAddr, note, 30)
	if _, err := f.engine.UpdateStake(carolAddr, note.ID, big.NewInt(-5)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	sum := f.loadStake(a.ID).Stake + f.loadStake(b.ID).Stake
	if got := f.loadNote(note.ID).Stake; got != sum || got != 37 {
		t.Fatalf("note stake %d, account sum %d", got, sum)
	}
	// Unlocated notes leave node stakes untouched.
	_, root := f.tree("music")
	if f.node(root.ID).Stake != 0 {
		t.Fatalf("root stake must be zero")
	}
}

func TestUpdateStakeErrors(t *testing.T) {
	f := newFixture(t, 0)
	note := f.note("kind-of-blue")
	_, err := f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(1))
	expectErr(t, err, ErrInvalidNode)

	if _, err := f.engine.CreateStake(bobAddr, note.ID); err != nil {
		t.Fatalf("create stake: %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = f.engine.UpdateStake(bobAddr, note.ID, huge)
	expectErr(t, err, ErrAmountOverflow)
	_, err = f.engine.UpdateStake(bobAddr, note.ID, new(big.Int).Neg(huge))
	expectErr(t, err, ErrAmountOverflow)

	_, err = f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(5))
	expectErr(t, err, bank.ErrAccountNotFound)

	f.fund(bobAddr, 3)
	_, err = f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(5))
	expectErr(t, err, bank.ErrInsufficientFunds)
}

func TestCreateStakeIsIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	note := f.note("kind-of-blue")
	first := f.stake(bobAddr, note, 8)
	again, err := f.engine.CreateStake(bobAddr, note.ID)
	if err != nil {
		t.Fatalf("create stake again: %v", err)
	}
	if again.ID != first.ID || again.Stake != 8 {
		t.Fatalf("expected existing account, got %+v", again)
	}
}

func TestCloseStake(t *testing.T) {
	f := newFixture(t, 0)
	note := f.note("kind-of-blue")
	acct := f.stake(bobAddr, note, 8)

	expectErr(t, f.engine.CloseStake(bobAddr, note.ID), ErrStakeNotEmpty)
	if _, err := f.engine.UpdateStake(bobAddr, note.ID, big.NewInt(-8)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := f.engine.CloseStake(bobAddr, note.ID); err != nil {
		t.Fatalf("close stake: %v", err)
	}
	if _, err := f.engine.Stake(acct.ID); err == nil {
		t.Fatalf("closed account must be gone")
	}
	expectErr(t, f.engine.CloseStake(bobAddr, note.ID), ErrInvalidNode)
}
