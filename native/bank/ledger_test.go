package bank

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/crypto"
	"dipindex/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

type fixture struct {
	store  *state.Store
	ledger *Ledger
	mint   common.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: state.NewStore(storage.NewMemDB()), ledger: NewLedger(), mint: MintID([]byte("vote"))}
	_, err := f.store.Update([]common.Hash{f.mint}, func(tx *state.Tx) error {
		_, err := f.ledger.CreateMint(tx, []byte("vote"), addr(0xAA))
		return err
	})
	if err != nil {
		t.Fatalf("create mint: %v", err)
	}
	return f
}

func (f *fixture) fund(t *testing.T, owner [20]byte, amount uint64) common.Hash {
	t.Helper()
	wallet := WalletID(f.mint, owner)
	_, err := f.store.Update([]common.Hash{f.mint, wallet}, func(tx *state.Tx) error {
		if _, err := f.ledger.OpenWallet(tx, f.mint, owner, owner); err != nil {
			return err
		}
		return f.ledger.MintTo(tx, f.mint, wallet, amount, SignerAuthority(addr(0xAA)))
	})
	if err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
	return wallet
}

func (f *fixture) balance(t *testing.T, id common.Hash) uint64 {
	t.Helper()
	var out uint64
	err := f.store.View(func(tx *state.Tx) error {
		var err error
		out, err = f.ledger.Balance(tx, id)
		return err
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return out
}

func TestTransferRequiresOwnerAuthority(t *testing.T) {
	f := newFixture(t)
	alice := f.fund(t, addr(1), 100)
	bob := f.fund(t, addr(2), 0)

	_, err := f.store.Update([]common.Hash{alice, bob}, func(tx *state.Tx) error {
		return f.ledger.Transfer(tx, alice, bob, 10, SignerAuthority(addr(2)))
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = f.store.Update([]common.Hash{alice, bob}, func(tx *state.Tx) error {
		return f.ledger.Transfer(tx, alice, bob, 40, SignerAuthority(addr(1)))
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.balance(t, alice); got != 60 {
		t.Fatalf("alice balance = %d, want 60", got)
	}
	if got := f.balance(t, bob); got != 40 {
		t.Fatalf("bob balance = %d, want 40", got)
	}
}

func TestCustodyWithdrawalUsesSeedAuthority(t *testing.T) {
	f := newFixture(t)
	alice := f.fund(t, addr(1), 50)
	seeds := [][]byte{[]byte("authority"), []byte("forest")}
	owner := crypto.DeriveID(seeds...)
	custody := CustodyID(f.mint, owner, []byte("vote"))

	_, err := f.store.Update([]common.Hash{alice, custody}, func(tx *state.Tx) error {
		if _, err := f.ledger.CreateCustody(tx, f.mint, owner, []byte("vote"), addr(1)); err != nil {
			return err
		}
		return f.ledger.Transfer(tx, alice, custody, 50, SignerAuthority(addr(1)))
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err = f.store.Update([]common.Hash{alice, custody}, func(tx *state.Tx) error {
		return f.ledger.Transfer(tx, custody, alice, 20, SignerAuthority(addr(1)))
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("signer must not withdraw from custody, got %v", err)
	}

	_, err = f.store.Update([]common.Hash{alice, custody}, func(tx *state.Tx) error {
		return f.ledger.Transfer(tx, custody, alice, 20, SeedAuthority(seeds...))
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := f.balance(t, custody); got != 30 {
		t.Fatalf("custody balance = %d, want 30", got)
	}
}

func TestTransferInsufficientFundsLeavesBalances(t *testing.T) {
	f := newFixture(t)
	alice := f.fund(t, addr(1), 5)
	bob := f.fund(t, addr(2), 0)
	_, err := f.store.Update([]common.Hash{alice, bob}, func(tx *state.Tx) error {
		return f.ledger.Transfer(tx, alice, bob, 6, SignerAuthority(addr(1)))
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := f.balance(t, alice); got != 5 {
		t.Fatalf("alice balance changed to %d", got)
	}
}

func TestMintToRequiresMintAuthority(t *testing.T) {
	f := newFixture(t)
	alice := f.fund(t, addr(1), 0)
	_, err := f.store.Update([]common.Hash{f.mint, alice}, func(tx *state.Tx) error {
		return f.ledger.MintTo(tx, f.mint, alice, 1, SignerAuthority(addr(1)))
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
}
