package index

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/events"
	"dipindex/core/state"
	"dipindex/native/bank"
	"dipindex/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func testKey(label string) [32]byte {
	var key [32]byte
	copy(key[:], label)
	return key
}

var (
	adminAddr = newTestAddress(0xA1)
	aliceAddr = newTestAddress(0xA2)
	bobAddr   = newTestAddress(0xB0)
	carolAddr = newTestAddress(0xC0)
	mintAuth  = newTestAddress(0xEE)
)

type fixture struct {
	t        *testing.T
	engine   *Engine
	recorder *events.Recorder
	mint     common.Hash
	forest   *Forest
}

func newFixture(t *testing.T, fee uint64) *fixture {
	t.Helper()
	engine := NewEngine(state.NewStore(storage.NewMemDB()))
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	f := &fixture{t: t, engine: engine, recorder: rec, mint: bank.MintID([]byte("vote"))}
	_, err := engine.Store().Update([]common.Hash{f.mint}, func(tx *state.Tx) error {
		_, err := engine.Ledger().CreateMint(tx, []byte("vote"), mintAuth)
		return err
	})
	if err != nil {
		t.Fatalf("create mint: %v", err)
	}
	f.forest, err = engine.CreateForest(adminAddr, testKey("forest"), ForestArgs{
		Admin:           adminAddr,
		TreeCreationFee: fee,
		VoteMint:        f.mint,
	})
	if err != nil {
		t.Fatalf("create forest: %v", err)
	}
	return f
}

func (f *fixture) fund(owner [20]byte, amount uint64) common.Hash {
	f.t.Helper()
	wallet := bank.WalletID(f.mint, owner)
	_, err := f.engine.Store().Update([]common.Hash{f.mint, wallet}, func(tx *state.Tx) error {
		if _, err := f.engine.Ledger().OpenWallet(tx, f.mint, owner, owner); err != nil {
			return err
		}
		return f.engine.Ledger().MintTo(tx, f.mint, wallet, amount, bank.SignerAuthority(mintAuth))
	})
	if err != nil {
		f.t.Fatalf("fund wallet: %v", err)
	}
	return wallet
}

func (f *fixture) balance(id common.Hash) uint64 {
	f.t.Helper()
	balance, err := f.engine.Balance(id)
	if err != nil {
		f.t.Fatalf("balance %s: %v", id.Hex(), err)
	}
	return balance
}

func (f *fixture) tree(tag string) (*Tree, *Node) {
	f.t.Helper()
	tree, root, err := f.engine.CreateTree(adminAddr, f.forest.ID, tag)
	if err != nil {
		f.t.Fatalf("create tree %q: %v", tag, err)
	}
	return tree, root
}

func (f *fixture) child(parent *Node, tag string) *Node {
	f.t.Helper()
	node, err := f.engine.CreateNode(aliceAddr, parent.Tree, parent.ID, tag)
	if err != nil {
		f.t.Fatalf("create node %q: %v", tag, err)
	}
	return node
}

func (f *fixture) attachedChild(parent *Node, tag string) *Node {
	f.t.Helper()
	node := f.child(parent, tag)
	if err := f.engine.AttachNode(aliceAddr, parent.ID, node.ID); err != nil {
		f.t.Fatalf("attach node %q: %v", tag, err)
	}
	return node
}

func (f *fixture) note(label string) *Note {
	f.t.Helper()
	note, err := f.engine.CreateNote(aliceAddr, f.forest.ID, testKey(label), NoteContent{Title: label})
	if err != nil {
		f.t.Fatalf("create note %q: %v", label, err)
	}
	return note
}

// stake funds staker and stakes amount on note.
func (f *fixture) stake(staker [20]byte, note *Note, amount uint64) *StakeAccount {
	f.t.Helper()
	f.fund(staker, amount)
	if _, err := f.engine.CreateStake(staker, note.ID); err != nil {
		f.t.Fatalf("create stake: %v", err)
	}
	acct, err := f.engine.UpdateStake(staker, note.ID, new(big.Int).SetUint64(amount))
	if err != nil {
		f.t.Fatalf("update stake: %v", err)
	}
	return acct
}

func (f *fixture) node(id common.Hash) *Node {
	f.t.Helper()
	n, err := f.engine.Node(id)
	if err != nil {
		f.t.Fatalf("load node %s: %v", id.Hex(), err)
	}
	return n
}

func (f *fixture) loadNote(id common.Hash) *Note {
	f.t.Helper()
	n, err := f.engine.Note(id)
	if err != nil {
		f.t.Fatalf("load note %s: %v", id.Hex(), err)
	}
	return n
}

func (f *fixture) loadStake(id common.Hash) *StakeAccount {
	f.t.Helper()
	s, err := f.engine.Stake(id)
	if err != nil {
		f.t.Fatalf("load stake %s: %v", id.Hex(), err)
	}
	return s
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func sameTags(got, want []string) bool {
	a := append([]string(nil), got...)
	b := append([]string(nil), want...)
	sort.Strings(a)
	sort.Strings(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
