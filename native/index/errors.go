package index

import (
	"errors"

	"dipindex/core/state"
	"dipindex/native/bank"
	nativecommon "dipindex/native/common"
)

var (
	ErrStringTooLong  = errors.New("index: given string is too long")
	ErrNodeFull       = errors.New("index: node is already full")
	ErrNodeNotFull    = errors.New("index: node is not full yet")
	ErrNotAChild      = errors.New("index: target node is not a child")
	ErrAlreadyAChild  = errors.New("index: target node is already a child")
	ErrNotEnoughStake = errors.New("index: not enough stake")
	ErrInvalidNode    = errors.New("index: invalid record")
	ErrTagsMismatch   = errors.New("index: tags do not match")
	ErrNotChildNote   = errors.New("index: target note is not a child of the node")
	ErrNotOnNode      = errors.New("index: target note is not attached to the node")
	ErrAlreadyOnNode  = errors.New("index: target note is already on a node")

	ErrUnauthorized   = errors.New("index: unauthorized")
	ErrAlreadyExists  = errors.New("index: record already exists")
	ErrStakeNotEmpty  = errors.New("index: stake account still holds stake")
	ErrAlreadyClaimed = errors.New("index: bribe already claimed")
	ErrAmountOverflow = errors.New("index: amount overflow")
	ErrInvalidAmount  = errors.New("index: amount must be positive")
	ErrBribeClosed    = errors.New("index: bribe closed")
	ErrBribeOpen      = errors.New("index: bribe has unclaimed stake")
	ErrUnknownHandler = errors.New("index: unknown handler")
	ErrInvalidRequest = errors.New("index: malformed request")

	errNilState = errors.New("index engine: state not configured")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrStringTooLong, "StringTooLong"},
	{ErrNodeFull, "NodeFull"},
	{ErrNodeNotFull, "NodeNotFull"},
	{ErrNotAChild, "NotAChild"},
	{ErrAlreadyAChild, "AlreadyAChild"},
	{ErrNotEnoughStake, "NotEnoughStake"},
	{ErrInvalidNode, "InvalidNode"},
	{ErrTagsMismatch, "TagsMismatch"},
	{ErrNotChildNote, "NotChildNote"},
	{ErrNotOnNode, "NotOnNode"},
	{ErrAlreadyOnNode, "AlreadyOnNode"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrStakeNotEmpty, "StakeNotEmpty"},
	{ErrAlreadyClaimed, "AlreadyClaimed"},
	{ErrAmountOverflow, "AmountOverflow"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrBribeClosed, "BribeClosed"},
	{ErrBribeOpen, "BribeOpen"},
	{ErrUnknownHandler, "UnknownHandler"},
	{ErrInvalidRequest, "InvalidRequest"},
	{bank.ErrInsufficientFunds, "InsufficientFunds"},
	{bank.ErrUnauthorized, "Unauthorized"},
	{bank.ErrAccountNotFound, "AccountNotFound"},
	{bank.ErrMintNotFound, "MintNotFound"},
	{bank.ErrMintMismatch, "MintMismatch"},
	{bank.ErrBalanceOverflow, "AmountOverflow"},
	{nativecommon.ErrModulePaused, "Paused"},
	{state.ErrExists, "AlreadyExists"},
	{state.ErrRecordSetUnstable, "Conflict"},
}

// Code returns the stable error code surfaced to callers for err.
func Code(err error) string {
	if err == nil {
		return "OK"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
