package bank

import (
	"strconv"

	"dipindex/core/types"
)

const (
	EventTypeMintCreated = "bank.mint.created"
	EventTypeMinted      = "bank.minted"
	EventTypeTransfer    = "bank.transfer"
)

type bankEvent struct {
	evt *types.Event
}

func (e bankEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bankEvent) Event() *types.Event { return e.evt }

func newTransferEvent(from, to *TokenAccount, amount uint64) bankEvent {
	return bankEvent{evt: &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"mint":   from.Mint.Hex(),
			"from":   from.ID.Hex(),
			"to":     to.ID.Hex(),
			"amount": strconv.FormatUint(amount, 10),
		},
	}}
}

func newMintedEvent(mint *Mint, to *TokenAccount, amount uint64) bankEvent {
	return bankEvent{evt: &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"mint":   mint.ID.Hex(),
			"to":     to.ID.Hex(),
			"amount": strconv.FormatUint(amount, 10),
			"supply": strconv.FormatUint(mint.Supply, 10),
		},
	}}
}
