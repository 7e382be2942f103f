package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Kind tags every persisted record so an id can never be read back as a
// different record type.
type Kind uint8

var (
	ErrNotFound          = errors.New("state: record not found")
	ErrKindMismatch      = errors.New("state: record kind mismatch")
	ErrExists            = errors.New("state: record already exists")
	ErrWrongOwner        = errors.New("state: record owned by another module")
	ErrWrongPayer        = errors.New("state: refund target is not the record payer")
	ErrUndeclared        = errors.New("state: record not declared by request")
	ErrReadOnly          = errors.New("state: read-only transaction")
	ErrRecordSetUnstable = errors.New("state: record set did not stabilise")
)

var recordPrefix = []byte("rec/")

// envelope is the persisted layout of every record. Field order is stable.
type envelope struct {
	Kind    uint8
	Owner   string
	Payer   [20]byte
	Payload []byte
}

// Meta exposes the envelope header of a stored record.
type Meta struct {
	Kind  Kind
	Owner string
	Payer [20]byte
}

func recordKey(id common.Hash) []byte {
	buf := make([]byte, len(recordPrefix)+common.HashLength)
	copy(buf, recordPrefix)
	copy(buf[len(recordPrefix):], id[:])
	return buf
}

func encodeRecord(kind Kind, owner string, payer [20]byte, rec any) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return nil, fmt.Errorf("state: encode kind %d: %w", kind, err)
	}
	return rlp.EncodeToBytes(&envelope{Kind: uint8(kind), Owner: owner, Payer: payer, Payload: payload})
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	env := new(envelope)
	if err := rlp.DecodeBytes(raw, env); err != nil {
		return nil, fmt.Errorf("state: decode envelope: %w", err)
	}
	return env, nil
}
