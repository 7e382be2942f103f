package index

import (
	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
	"dipindex/native/bank"
)

func (e *Engine) view(fn func(*state.Tx) error) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return e.store.View(fn)
}

// Forest returns the forest stored under id.
func (e *Engine) Forest(id common.Hash) (f *Forest, err error) {
	err = e.view(func(tx *state.Tx) error {
		f, err = loadForest(tx, id)
		return err
	})
	return f, err
}

func (e *Engine) Tree(id common.Hash) (t *Tree, err error) {
	err = e.view(func(tx *state.Tx) error {
		t, err = loadTree(tx, id)
		return err
	})
	return t, err
}

func (e *Engine) Node(id common.Hash) (n *Node, err error) {
	err = e.view(func(tx *state.Tx) error {
		n, err = loadNode(tx, id)
		return err
	})
	return n, err
}

// Children returns the attached children of a node in slot order.
func (e *Engine) Children(id common.Hash) (out []*Node, err error) {
	err = e.view(func(tx *state.Tx) error {
		parent, err := loadNode(tx, id)
		if err != nil {
			return err
		}
		out, err = loadChildren(tx, parent, common.Hash{})
		return err
	})
	return out, err
}

func (e *Engine) Note(id common.Hash) (n *Note, err error) {
	err = e.view(func(tx *state.Tx) error {
		n, err = loadNote(tx, id)
		return err
	})
	return n, err
}

func (e *Engine) Stake(id common.Hash) (s *StakeAccount, err error) {
	err = e.view(func(tx *state.Tx) error {
		s, err = loadStake(tx, id)
		return err
	})
	return s, err
}

func (e *Engine) Bribe(id common.Hash) (b *Bribe, err error) {
	err = e.view(func(tx *state.Tx) error {
		b, err = loadBribe(tx, id)
		return err
	})
	return b, err
}

// Claim returns the claim receipt stored under id.
func (e *Engine) Claim(id common.Hash) (c *BribeClaim, err error) {
	err = e.view(func(tx *state.Tx) error {
		c = new(BribeClaim)
		return load(tx, id, KindBribeClaim, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Account returns a token account of the shared ledger.
func (e *Engine) Account(id common.Hash) (a *bank.TokenAccount, err error) {
	err = e.view(func(tx *state.Tx) error {
		a, err = e.ledger.Account(tx, id)
		return err
	})
	return a, err
}

// Balance returns the balance of a token account.
func (e *Engine) Balance(id common.Hash) (balance uint64, err error) {
	err = e.view(func(tx *state.Tx) error {
		balance, err = e.ledger.Balance(tx, id)
		return err
	})
	return balance, err
}
