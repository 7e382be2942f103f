package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"dipindex/core/events"
	"dipindex/storage"
)

type pending struct {
	value   []byte
	deleted bool
}

// Tx is the unit of work handed to a handler. Writes are buffered until the
// owning Store commits them in one batch; reads see the buffered writes.
type Tx struct {
	db       storage.Database
	declared map[common.Hash]struct{}
	readOnly bool
	writes   map[common.Hash]*pending
	missing  map[common.Hash]struct{}
	events   events.Buffer
}

func newTx(db storage.Database, declared map[common.Hash]struct{}, readOnly bool) *Tx {
	return &Tx{
		db:       db,
		declared: declared,
		readOnly: readOnly,
		writes:   make(map[common.Hash]*pending),
		missing:  make(map[common.Hash]struct{}),
	}
}

func (tx *Tx) access(id common.Hash) error {
	if tx.declared == nil {
		return nil
	}
	if _, ok := tx.declared[id]; ok {
		return nil
	}
	tx.missing[id] = struct{}{}
	return fmt.Errorf("%w: %s", ErrUndeclared, id.Hex())
}

func (tx *Tx) raw(id common.Hash) ([]byte, bool, error) {
	if err := tx.access(id); err != nil {
		return nil, false, err
	}
	if p, ok := tx.writes[id]; ok {
		if p.deleted {
			return nil, false, nil
		}
		return p.value, true, nil
	}
	value, err := tx.db.Get(recordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (tx *Tx) write(id common.Hash, value []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if err := tx.access(id); err != nil {
		return err
	}
	tx.writes[id] = &pending{value: value}
	return nil
}

func (tx *Tx) envelope(id common.Hash) (*envelope, error) {
	raw, ok, err := tx.raw(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Hex())
	}
	return decodeEnvelope(raw)
}

// Exists reports whether a record with the given id is present.
func (tx *Tx) Exists(id common.Hash) (bool, error) {
	_, ok, err := tx.raw(id)
	return ok, err
}

// Meta returns the envelope header of the record.
func (tx *Tx) Meta(id common.Hash) (Meta, error) {
	env, err := tx.envelope(id)
	if err != nil {
		return Meta{}, err
	}
	return Meta{Kind: Kind(env.Kind), Owner: env.Owner, Payer: env.Payer}, nil
}

// Load decodes the record stored under id into out. The stored kind must
// match kind.
func (tx *Tx) Load(id common.Hash, kind Kind, out any) error {
	env, err := tx.envelope(id)
	if err != nil {
		return err
	}
	if Kind(env.Kind) != kind {
		return fmt.Errorf("%w: %s is kind %d, want %d", ErrKindMismatch, id.Hex(), env.Kind, kind)
	}
	if err := rlp.DecodeBytes(env.Payload, out); err != nil {
		return fmt.Errorf("state: decode kind %d: %w", kind, err)
	}
	return nil
}

// Create initialises a new record. It fails with ErrExists when the id is taken.
func (tx *Tx) Create(id common.Hash, kind Kind, owner string, payer [20]byte, rec any) error {
	ok, err := tx.Exists(id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrExists, id.Hex())
	}
	encoded, err := encodeRecord(kind, owner, payer, rec)
	if err != nil {
		return err
	}
	return tx.write(id, encoded)
}

// Mutate overwrites an existing record. Only the owning module may mutate it.
func (tx *Tx) Mutate(id common.Hash, kind Kind, owner string, rec any) error {
	env, err := tx.envelope(id)
	if err != nil {
		return err
	}
	if Kind(env.Kind) != kind {
		return fmt.Errorf("%w: %s is kind %d, want %d", ErrKindMismatch, id.Hex(), env.Kind, kind)
	}
	if env.Owner != owner {
		return fmt.Errorf("%w: %s owned by %q", ErrWrongOwner, id.Hex(), env.Owner)
	}
	encoded, err := encodeRecord(kind, owner, env.Payer, rec)
	if err != nil {
		return err
	}
	return tx.write(id, encoded)
}

// Close removes a record and releases it to refundTo, which must be the
// original payer.
func (tx *Tx) Close(id common.Hash, kind Kind, owner string, refundTo [20]byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	env, err := tx.envelope(id)
	if err != nil {
		return err
	}
	if Kind(env.Kind) != kind {
		return fmt.Errorf("%w: %s is kind %d, want %d", ErrKindMismatch, id.Hex(), env.Kind, kind)
	}
	if env.Owner != owner {
		return fmt.Errorf("%w: %s owned by %q", ErrWrongOwner, id.Hex(), env.Owner)
	}
	if env.Payer != refundTo {
		return ErrWrongPayer
	}
	tx.writes[id] = &pending{deleted: true}
	return nil
}

// Emit buffers an event that is released only if the transaction commits.
func (tx *Tx) Emit(evt events.Event) {
	tx.events.Emit(evt)
}

func (tx *Tx) batch() *storage.Batch {
	batch := storage.NewBatch()
	for id, p := range tx.writes {
		if p.deleted {
			batch.Delete(recordKey(id))
			continue
		}
		batch.Put(recordKey(id), p.value)
	}
	return batch
}
