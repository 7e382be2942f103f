package index

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/events"
	"dipindex/core/state"
	"dipindex/native/bank"
	nativecommon "dipindex/native/common"
	"dipindex/observability/metrics"
)

// Engine executes index handlers against the record store. Every handler runs
// as one store transaction: all of its record and token effects commit
// together or not at all.
type Engine struct {
	store   *state.Store
	ledger  *bank.Ledger
	params  Params
	emitter events.Emitter
	pauses  nativecommon.PauseView
	metrics *metrics.IndexMetrics
	logger  *slog.Logger
}

// NewEngine creates an engine with default parameters and a no-op emitter.
func NewEngine(store *state.Store) *Engine {
	return &Engine{
		store:   store,
		ledger:  bank.NewLedger(),
		params:  DefaultParams(),
		emitter: events.NoopEmitter{},
		logger:  slog.Default().With("component", ModuleName),
	}
}

// SetParams overrides the index limits. Zero fields keep their defaults.
func (e *Engine) SetParams(p Params) {
	def := DefaultParams()
	if p.NodeCapacity <= 0 {
		p.NodeCapacity = def.NodeCapacity
	}
	if p.MaxTagLength <= 0 {
		p.MaxTagLength = def.MaxTagLength
	}
	if p.MaxStringLength <= 0 {
		p.MaxStringLength = def.MaxStringLength
	}
	e.params = p
}

// Params returns the active limits.
func (e *Engine) Params() Params { return e.params }

// SetEmitter configures the sink for committed events. Passing nil resets it
// to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses installs the view consulted before each handler runs.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetMetrics installs the metrics sink. A nil sink disables metrics.
func (e *Engine) SetMetrics(m *metrics.IndexMetrics) { e.metrics = m }

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	e.logger = l.With("component", ModuleName)
}

// Store exposes the backing record store.
func (e *Engine) Store() *state.Store { return e.store }

// Ledger exposes the token ledger sharing the engine's transactions.
func (e *Engine) Ledger() *bank.Ledger { return e.ledger }

func (e *Engine) execute(handler string, declared []common.Hash, fn func(*state.Tx) error) (*state.Receipt, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, handler); err != nil {
		e.metrics.ObserveHandler(handler, Code(err), 0)
		return nil, fmt.Errorf("%s: %w", handler, err)
	}
	start := time.Now()
	receipt, err := e.store.Update(declared, fn)
	elapsed := time.Since(start)
	e.metrics.ObserveHandler(handler, Code(err), elapsed)
	if err != nil {
		e.logger.Warn("handler rejected", "handler", handler, "code", Code(err), "err", err)
		return nil, err
	}
	e.metrics.ObserveAttempts(receipt.Attempts)
	for _, evt := range receipt.Events {
		e.emitter.Emit(evt)
	}
	e.logger.Debug("handler committed",
		"handler", handler,
		"request", receipt.ID.String(),
		"attempts", receipt.Attempts,
		"writes", receipt.Writes,
		"elapsed", elapsed)
	return receipt, nil
}

// load decodes an index record, reporting absent or foreign records as
// ErrInvalidNode.
func load(tx *state.Tx, id common.Hash, kind state.Kind, out any) error {
	if id == (common.Hash{}) {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}
	if err := tx.Load(id, kind, out); err != nil {
		if errors.Is(err, state.ErrNotFound) || errors.Is(err, state.ErrKindMismatch) {
			return fmt.Errorf("%w: %v", ErrInvalidNode, err)
		}
		return err
	}
	return nil
}

func create(tx *state.Tx, id common.Hash, kind state.Kind, payer [20]byte, rec any) error {
	if err := tx.Create(id, kind, ModuleName, payer, rec); err != nil {
		if errors.Is(err, state.ErrExists) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, id.Hex())
		}
		return err
	}
	return nil
}

func save(tx *state.Tx, id common.Hash, kind state.Kind, rec any) error {
	return tx.Mutate(id, kind, ModuleName, rec)
}

func loadForest(tx *state.Tx, id common.Hash) (*Forest, error) {
	f := new(Forest)
	if err := load(tx, id, KindForest, f); err != nil {
		return nil, err
	}
	return f, nil
}

func loadTree(tx *state.Tx, id common.Hash) (*Tree, error) {
	t := new(Tree)
	if err := load(tx, id, KindTree, t); err != nil {
		return nil, err
	}
	return t, nil
}

func loadNode(tx *state.Tx, id common.Hash) (*Node, error) {
	n := new(Node)
	if err := load(tx, id, KindNode, n); err != nil {
		return nil, err
	}
	return n, nil
}

func loadNote(tx *state.Tx, id common.Hash) (*Note, error) {
	n := new(Note)
	if err := load(tx, id, KindNote, n); err != nil {
		return nil, err
	}
	return n, nil
}

func loadStake(tx *state.Tx, id common.Hash) (*StakeAccount, error) {
	s := new(StakeAccount)
	if err := load(tx, id, KindStake, s); err != nil {
		return nil, err
	}
	return s, nil
}

func loadBribe(tx *state.Tx, id common.Hash) (*Bribe, error) {
	b := new(Bribe)
	if err := load(tx, id, KindBribe, b); err != nil {
		return nil, err
	}
	return b, nil
}

// forestOf resolves the forest a node belongs to through its tree.
func forestOf(tx *state.Tx, node *Node) (*Tree, *Forest, error) {
	tree, err := loadTree(tx, node.Tree)
	if err != nil {
		return nil, nil, err
	}
	forest, err := loadForest(tx, tree.Forest)
	if err != nil {
		return nil, nil, err
	}
	return tree, forest, nil
}

func (e *Engine) checkTag(tag string) error {
	if len(tag) >= e.params.MaxTagLength {
		return fmt.Errorf("%w: tag is %d bytes", ErrStringTooLong, len(tag))
	}
	if tag == "" {
		return fmt.Errorf("%w: empty tag", ErrTagsMismatch)
	}
	return nil
}

func (e *Engine) checkString(field, value string) error {
	if len(value) > e.params.MaxStringLength {
		return fmt.Errorf("%w: %s is %d bytes", ErrStringTooLong, field, len(value))
	}
	return nil
}
