package index

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/native/bank"
)

// CreateMint registers a token mint with signer as its authority.
func (e *Engine) CreateMint(signer [20]byte, seed string) (*bank.Mint, error) {
	mint, _, err := e.createMint(signer, seed)
	return mint, err
}

func (e *Engine) createMint(signer [20]byte, seed string) (*bank.Mint, *state.Receipt, error) {
	if seed == "" {
		return nil, nil, ErrInvalidRequest
	}
	id := bank.MintID([]byte(seed))
	var mint *bank.Mint
	receipt, err := e.execute(HandlerCreateMint, []common.Hash{id}, func(tx *state.Tx) error {
		m, err := e.ledger.CreateMint(tx, []byte(seed), signer)
		if err != nil {
			return err
		}
		mint = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return mint, receipt, nil
}

// MintTo issues amount into the wallet of owner, opening it if needed. Only
// the mint authority may issue.
func (e *Engine) MintTo(signer [20]byte, mint common.Hash, owner [20]byte, amount uint64) (common.Hash, error) {
	wallet, _, err := e.mintTo(signer, mint, owner, amount)
	return wallet, err
}

func (e *Engine) mintTo(signer [20]byte, mint common.Hash, owner [20]byte, amount uint64) (common.Hash, *state.Receipt, error) {
	wallet := bank.WalletID(mint, owner)
	receipt, err := e.execute(HandlerMintTo, []common.Hash{mint, wallet}, func(tx *state.Tx) error {
		if _, err := e.ledger.OpenWallet(tx, mint, owner, signer); err != nil {
			return err
		}
		return e.ledger.MintTo(tx, mint, wallet, amount, bank.SignerAuthority(signer))
	})
	if err != nil {
		return common.Hash{}, nil, err
	}
	return wallet, receipt, nil
}

// OpenWallet creates the wallet of owner for mint, paid by signer.
func (e *Engine) OpenWallet(signer [20]byte, mint common.Hash, owner [20]byte) (common.Hash, error) {
	wallet, _, err := e.openWallet(signer, mint, owner)
	return wallet, err
}

func (e *Engine) openWallet(signer [20]byte, mint common.Hash, owner [20]byte) (common.Hash, *state.Receipt, error) {
	wallet := bank.WalletID(mint, owner)
	receipt, err := e.execute(HandlerOpenWallet, []common.Hash{mint, wallet}, func(tx *state.Tx) error {
		_, err := e.ledger.OpenWallet(tx, mint, owner, signer)
		return err
	})
	if err != nil {
		return common.Hash{}, nil, err
	}
	return wallet, receipt, nil
}
