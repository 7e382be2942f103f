package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"dipindex/core/state"
	"dipindex/native/bank"
	"dipindex/native/index"
	"dipindex/storage"
)

func TestEnsureVoteMintIsIdempotent(t *testing.T) {
	engine := index.NewEngine(state.NewStore(storage.NewMemDB()))
	operator := [20]byte{0x01}

	id, err := ensureVoteMint(engine, operator, "vote")
	require.NoError(t, err)
	require.Equal(t, bank.MintID([]byte("vote")), id)

	again, err := ensureVoteMint(engine, operator, "vote")
	require.NoError(t, err)
	require.Equal(t, id, again)

	_, err = ensureVoteMint(engine, [20]byte{0x02}, "vote")
	require.ErrorContains(t, err, "another authority")
}

func TestLogEmitterWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	engine := index.NewEngine(state.NewStore(storage.NewMemDB()))
	engine.SetEmitter(&logEmitter{logger: slog.New(slog.NewJSONHandler(&buf, nil))})

	_, err := ensureVoteMint(engine, [20]byte{0x01}, "vote")
	require.NoError(t, err)
	require.Contains(t, buf.String(), bank.EventTypeMintCreated)
}
