package state

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"dipindex/core/events"
	"dipindex/storage"
)

const defaultMaxAttempts = 8

// Receipt describes a committed request.
type Receipt struct {
	ID       uuid.UUID
	Attempts int
	Writes   int
	Digest   [32]byte
	Events   []events.Event
}

// Store is the only layer that allocates or reclaims records. Requests whose
// record sets overlap are serialised; disjoint requests proceed in parallel.
type Store struct {
	db          storage.Database
	locks       lockTable
	maxAttempts int
}

// NewStore wraps the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db, maxAttempts: defaultMaxAttempts}
}

// Database exposes the backing key-value store.
func (s *Store) Database() storage.Database { return s.db }

// Update runs fn against the declared record set and commits its writes
// atomically. If fn touches a record outside the set, the attempt is discarded,
// the record joins the set and fn runs again from a clean slate. Any other
// error aborts the request with no writes applied.
func (s *Store) Update(declared []common.Hash, fn func(*Tx) error) (*Receipt, error) {
	set := make(map[common.Hash]struct{}, len(declared))
	for _, id := range declared {
		if id != (common.Hash{}) {
			set[id] = struct{}{}
		}
	}
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		receipt, missing, err := s.attempt(set, fn)
		if len(missing) == 0 {
			if receipt != nil {
				receipt.Attempts = attempt
			}
			return receipt, err
		}
		for id := range missing {
			set[id] = struct{}{}
		}
	}
	return nil, ErrRecordSetUnstable
}

func (s *Store) attempt(set map[common.Hash]struct{}, fn func(*Tx) error) (*Receipt, map[common.Hash]struct{}, error) {
	release := s.locks.acquire(set)
	defer release()

	tx := newTx(s.db, set, false)
	err := fn(tx)
	if len(tx.missing) > 0 {
		return nil, tx.missing, nil
	}
	if err != nil {
		return nil, nil, err
	}
	batch := tx.batch()
	if batch.Len() > 0 {
		if err := s.db.Write(batch); err != nil {
			return nil, nil, err
		}
	}
	receipt := &Receipt{
		ID:     uuid.New(),
		Writes: batch.Len(),
		Digest: digest(batch),
	}
	rec := &events.Recorder{}
	tx.events.Flush(rec)
	receipt.Events = rec.Events()
	return receipt, nil, nil
}

// View runs fn against a read-only transaction without taking record locks.
func (s *Store) View(fn func(*Tx) error) error {
	return fn(newTx(s.db, nil, true))
}

func digest(batch *storage.Batch) [32]byte {
	h := blake3.New(32, nil)
	var size [8]byte
	for _, op := range batch.Ops() {
		binary.BigEndian.PutUint64(size[:], uint64(len(op.Key)))
		h.Write(size[:])
		h.Write(op.Key)
		if op.Deleted() {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		binary.BigEndian.PutUint64(size[:], uint64(len(op.Value)))
		h.Write(size[:])
		h.Write(op.Value)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
