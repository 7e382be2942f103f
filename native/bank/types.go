package bank

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/crypto"
)

// ModuleName owns every mint and token account record.
const ModuleName = "bank"

const (
	KindMint    state.Kind = 16
	KindAccount state.Kind = 17
)

var (
	mintSeed    = []byte("mint")
	walletSeed  = []byte("wallet")
	custodySeed = []byte("custody")
)

// Mint describes a fungible token.
type Mint struct {
	ID        common.Hash
	Authority [20]byte
	Supply    uint64
}

// TokenAccount holds a balance of a single mint on behalf of an owner. The
// owner is either a widened participant address or a derived authority.
type TokenAccount struct {
	ID      common.Hash
	Mint    common.Hash
	Owner   common.Hash
	Label   string
	Balance uint64
}

// MintID derives the identifier of a mint from its creation seed.
func MintID(seed []byte) common.Hash {
	return crypto.DeriveID(mintSeed, seed)
}

// WalletID derives the default account of owner for mint.
func WalletID(mint common.Hash, owner [20]byte) common.Hash {
	widened := crypto.OwnerFromAddress(owner)
	return crypto.DeriveID(walletSeed, mint.Bytes(), widened.Bytes())
}

// CustodyID derives a labelled account held by a program authority.
func CustodyID(mint common.Hash, owner common.Hash, label []byte) common.Hash {
	return crypto.DeriveID(custodySeed, mint.Bytes(), owner.Bytes(), label)
}

// Authority is the proof presented to move tokens out of an account.
type Authority struct {
	signer *[20]byte
	seeds  [][]byte
}

// SignerAuthority authorises a transfer with the signature of a participant.
func SignerAuthority(addr [20]byte) Authority {
	a := addr
	return Authority{signer: &a}
}

// SeedAuthority authorises a transfer for the program authority derived from seeds.
func SeedAuthority(seeds ...[]byte) Authority {
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = append([]byte(nil), seed...)
	}
	return Authority{seeds: copied}
}

// Owner resolves the account owner the proof speaks for.
func (a Authority) Owner() common.Hash {
	if a.signer != nil {
		return crypto.OwnerFromAddress(*a.signer)
	}
	if len(a.seeds) == 0 {
		return common.Hash{}
	}
	return crypto.DeriveID(a.seeds...)
}
