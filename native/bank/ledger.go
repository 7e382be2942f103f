package bank

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/core/types"
	"dipindex/crypto"
)

var (
	ErrUnauthorized      = errors.New("bank: unauthorized")
	ErrInsufficientFunds = errors.New("bank: insufficient balance")
	ErrMintMismatch      = errors.New("bank: accounts hold different mints")
	ErrBalanceOverflow   = errors.New("bank: balance overflow")
	ErrAccountNotFound   = errors.New("bank: account not found")
	ErrMintNotFound      = errors.New("bank: mint not found")
)

// Ledger moves balances between token accounts. Every call runs inside the
// caller's transaction so transfers commit or roll back with the request.
type Ledger struct{}

// NewLedger constructs a ledger.
func NewLedger() *Ledger { return &Ledger{} }

// CreateMint registers a mint whose supply can be issued by authority.
func (l *Ledger) CreateMint(tx *state.Tx, seed []byte, authority [20]byte) (*Mint, error) {
	mint := &Mint{ID: MintID(seed), Authority: authority}
	if err := tx.Create(mint.ID, KindMint, ModuleName, authority, mint); err != nil {
		return nil, err
	}
	tx.Emit(bankEvent{evt: &types.Event{
		Type:       EventTypeMintCreated,
		Attributes: map[string]string{"mint": mint.ID.Hex(), "authority": crypto.AddressFromRaw(authority).String()},
	}})
	return mint, nil
}

// Mint loads a mint definition.
func (l *Ledger) Mint(tx *state.Tx, id common.Hash) (*Mint, error) {
	mint := new(Mint)
	if err := tx.Load(id, KindMint, mint); err != nil {
		if errors.Is(err, state.ErrNotFound) || errors.Is(err, state.ErrKindMismatch) {
			return nil, fmt.Errorf("%w: %s", ErrMintNotFound, id.Hex())
		}
		return nil, err
	}
	return mint, nil
}

// MintTo issues new supply into the target account.
func (l *Ledger) MintTo(tx *state.Tx, mintID, to common.Hash, amount uint64, auth Authority) error {
	mint, err := l.Mint(tx, mintID)
	if err != nil {
		return err
	}
	if auth.Owner() != crypto.OwnerFromAddress(mint.Authority) {
		return ErrUnauthorized
	}
	dst, err := l.Account(tx, to)
	if err != nil {
		return err
	}
	if dst.Mint != mint.ID {
		return ErrMintMismatch
	}
	if mint.Supply > math.MaxUint64-amount || dst.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	mint.Supply += amount
	dst.Balance += amount
	if err := tx.Mutate(mint.ID, KindMint, ModuleName, mint); err != nil {
		return err
	}
	if err := tx.Mutate(dst.ID, KindAccount, ModuleName, dst); err != nil {
		return err
	}
	tx.Emit(newMintedEvent(mint, dst, amount))
	return nil
}

// OpenWallet returns the default account of owner for mint, creating it when
// missing.
func (l *Ledger) OpenWallet(tx *state.Tx, mint common.Hash, owner [20]byte, payer [20]byte) (common.Hash, error) {
	id := WalletID(mint, owner)
	return id, l.ensureAccount(tx, &TokenAccount{ID: id, Mint: mint, Owner: crypto.OwnerFromAddress(owner)}, payer)
}

// CreateCustody returns the labelled account held by a program authority,
// creating it when missing.
func (l *Ledger) CreateCustody(tx *state.Tx, mint common.Hash, owner common.Hash, label []byte, payer [20]byte) (common.Hash, error) {
	id := CustodyID(mint, owner, label)
	return id, l.ensureAccount(tx, &TokenAccount{ID: id, Mint: mint, Owner: owner, Label: string(label)}, payer)
}

func (l *Ledger) ensureAccount(tx *state.Tx, acc *TokenAccount, payer [20]byte) error {
	ok, err := tx.Exists(acc.ID)
	if err != nil {
		return err
	}
	if ok {
		existing, err := l.Account(tx, acc.ID)
		if err != nil {
			return err
		}
		if existing.Mint != acc.Mint || existing.Owner != acc.Owner {
			return fmt.Errorf("bank: account %s already bound to another owner", acc.ID.Hex())
		}
		return nil
	}
	if _, err := l.Mint(tx, acc.Mint); err != nil {
		return err
	}
	return tx.Create(acc.ID, KindAccount, ModuleName, payer, acc)
}

// Account loads a token account.
func (l *Ledger) Account(tx *state.Tx, id common.Hash) (*TokenAccount, error) {
	acc := new(TokenAccount)
	if err := tx.Load(id, KindAccount, acc); err != nil {
		if errors.Is(err, state.ErrNotFound) || errors.Is(err, state.ErrKindMismatch) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id.Hex())
		}
		return nil, err
	}
	return acc, nil
}

// Balance returns the balance held by the account.
func (l *Ledger) Balance(tx *state.Tx, id common.Hash) (uint64, error) {
	acc, err := l.Account(tx, id)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Transfer moves amount from one account to another. auth must resolve to the
// owner of the source account.
func (l *Ledger) Transfer(tx *state.Tx, from, to common.Hash, amount uint64, auth Authority) error {
	src, err := l.Account(tx, from)
	if err != nil {
		return err
	}
	if auth.Owner() != src.Owner {
		return fmt.Errorf("%w: authority does not own %s", ErrUnauthorized, from.Hex())
	}
	dst, err := l.Account(tx, to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if amount == 0 || from == to {
		return nil
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Balance, amount)
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := tx.Mutate(src.ID, KindAccount, ModuleName, src); err != nil {
		return err
	}
	if err := tx.Mutate(dst.ID, KindAccount, ModuleName, dst); err != nil {
		return err
	}
	tx.Emit(newTransferEvent(src, dst, amount))
	return nil
}
