package index

import (
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"dipindex/crypto"
	"dipindex/native/bank"
	nativecommon "dipindex/native/common"
)

func hexKey(label string) string {
	key := testKey(label)
	return hexutil.Encode(key[:])
}

func TestDispatchBuildsTree(t *testing.T) {
	f := newFixture(t, 0)
	signer := crypto.AddressFromRaw(aliceAddr).String()

	res, err := f.engine.Dispatch(Request{Handler: HandlerCreateTree, Signer: signer, Forest: f.forest.ID.Hex(), Tag: "music"})
	if err != nil {
		t.Fatalf("create tree: %v", err)
	}
	root := res.Records["rootNode"]
	if root == "" || res.RequestID == "" || res.Attempts < 1 || res.Writes == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Events) == 0 || res.Events[len(res.Events)-1].Type != EventTypeTreeCreated {
		t.Fatalf("expected tree event in result")
	}

	res, err = f.engine.Dispatch(Request{Handler: HandlerCreateNode, Signer: signer, Tree: res.Records["tree"], Parent: root, Tag: "jazz"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	child := res.Records["node"]
	if _, err := f.engine.Dispatch(Request{Handler: HandlerAttachNode, Signer: signer, Parent: root, Child: child}); err != nil {
		t.Fatalf("attach node: %v", err)
	}

	res, err = f.engine.Dispatch(Request{Handler: HandlerCreateNote, Signer: signer, Forest: f.forest.ID.Hex(), Key: hexKey("note"), Title: "Kind of Blue"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	note := res.Records["note"]
	if _, err := f.engine.Dispatch(Request{Handler: HandlerAttachNote, Signer: signer, Node: child, Note: note}); err != nil {
		t.Fatalf("attach note: %v", err)
	}

	f.fund(aliceAddr, 50)
	if _, err := f.engine.Dispatch(Request{Handler: HandlerCreateStake, Signer: signer, Note: note}); err != nil {
		t.Fatalf("create stake: %v", err)
	}
	res, err = f.engine.Dispatch(Request{Handler: HandlerUpdateStake, Signer: signer, Note: note, Delta: "20"})
	if err != nil {
		t.Fatalf("update stake: %v", err)
	}
	if res.Amount == nil || *res.Amount != 20 {
		t.Fatalf("expected stake amount 20 in result")
	}
	res, err = f.engine.Dispatch(Request{Handler: HandlerSetBribe, Signer: signer, Node: child, Amount: 10})
	if err != nil {
		t.Fatalf("set bribe: %v", err)
	}
	res, err = f.engine.Dispatch(Request{Handler: HandlerClaimBribe, Signer: signer, Node: child, Note: note, Briber: signer})
	if err != nil {
		t.Fatalf("claim bribe: %v", err)
	}
	if res.Amount == nil || *res.Amount != 10 {
		t.Fatalf("sole staker should receive the whole bribe")
	}
	res, err = f.engine.Dispatch(Request{Handler: HandlerCloseBribe, Signer: signer, Node: child})
	if err != nil {
		t.Fatalf("close bribe: %v", err)
	}
	if res.Records["bribe"] == "" || res.Amount == nil || *res.Amount != 0 {
		t.Fatalf("unexpected close result %+v", res)
	}
}

func TestDispatchRejectsMalformedRequests(t *testing.T) {
	f := newFixture(t, 0)
	signer := crypto.AddressFromRaw(aliceAddr).String()

	_, err := f.engine.Dispatch(Request{Handler: "burn_everything", Signer: signer})
	expectErr(t, err, ErrUnknownHandler)
	_, err = f.engine.Dispatch(Request{Handler: HandlerCreateTree, Signer: "nobody"})
	expectErr(t, err, ErrInvalidRequest)
	_, err = f.engine.Dispatch(Request{Handler: HandlerCreateTree, Signer: signer, Forest: "0x1234"})
	expectErr(t, err, ErrInvalidRequest)
	_, err = f.engine.Dispatch(Request{Handler: HandlerUpdateStake, Signer: signer, Note: f.forest.ID.Hex(), Delta: "ten"})
	expectErr(t, err, ErrInvalidRequest)
	if Code(err) != "InvalidRequest" {
		t.Fatalf("unexpected code %q", Code(err))
	}
}

func TestParseParticipant(t *testing.T) {
	bech := crypto.AddressFromRaw(bobAddr).String()
	got, err := ParseParticipant(bech)
	if err != nil || got != bobAddr {
		t.Fatalf("bech32 parse: %v", err)
	}
	got, err = ParseParticipant(hexutil.Encode(bobAddr[:]))
	if err != nil || got != bobAddr {
		t.Fatalf("hex parse: %v", err)
	}
	if _, err := ParseParticipant("0xzz"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestPausedHandler(t *testing.T) {
	f := newFixture(t, 0)
	pauses := nativecommon.NewPauseSet(HandlerCreateTree)
	f.engine.SetPauses(pauses)

	_, _, err := f.engine.CreateTree(adminAddr, f.forest.ID, "music")
	if !errors.Is(err, nativecommon.ErrModulePaused) || Code(err) != "Paused" {
		t.Fatalf("expected paused error, got %v", err)
	}
	pauses.Resume(HandlerCreateTree)
	f.tree("music")
}

func TestConcurrentStakersConserveTotals(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	node := f.attachedChild(root, "jazz")
	note := f.note("kind-of-blue")
	if err := f.engine.AttachNote(aliceAddr, node.ID, note.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}
	const stakers = 16
	for i := 0; i < stakers; i++ {
		addr := newTestAddress(byte(0x10 + i))
		f.fund(addr, 10)
		if _, err := f.engine.CreateStake(addr, note.ID); err != nil {
			t.Fatalf("create stake: %v", err)
		}
	}
	var wg sync.WaitGroup
	errs := make(chan error, stakers)
	for i := 0; i < stakers; i++ {
		wg.Add(1)
		go func(addr [20]byte) {
			defer wg.Done()
			if _, err := f.engine.Dispatch(Request{
				Handler: HandlerUpdateStake,
				Signer:  crypto.AddressFromRaw(addr).String(),
				Note:    note.ID.Hex(),
				Delta:   "10",
			}); err != nil {
				errs <- err
			}
		}(newTestAddress(byte(0x10 + i)))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent stake: %v", err)
	}
	if got := f.loadNote(note.ID).Stake; got != stakers*10 {
		t.Fatalf("note stake %d, want %d", got, stakers*10)
	}
	if got := f.node(node.ID).Stake; got != stakers*10 {
		t.Fatalf("node stake %d, want %d", got, stakers*10)
	}
	if got := f.balance(f.forest.VoteCustody); got != stakers*10 {
		t.Fatalf("custody %d, want %d", got, stakers*10)
	}
}

func TestDispatchLedgerHandlers(t *testing.T) {
	f := newFixture(t, 0)
	operator := crypto.AddressFromRaw(mintAuth).String()
	bob := crypto.AddressFromRaw(bobAddr).String()

	res, err := f.engine.Dispatch(Request{Handler: HandlerCreateMint, Signer: operator, Seed: "reward"})
	if err != nil {
		t.Fatalf("create mint: %v", err)
	}
	mint := res.Records["mint"]
	res, err = f.engine.Dispatch(Request{Handler: HandlerMintTo, Signer: operator, Mint: mint, Owner: bob, Amount: 12})
	if err != nil {
		t.Fatalf("mint to: %v", err)
	}
	wallet, err := hexutil.Decode(res.Records["wallet"])
	if err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	var id [32]byte
	copy(id[:], wallet)
	if got := f.balance(id); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}

	_, err = f.engine.Dispatch(Request{Handler: HandlerMintTo, Signer: bob, Mint: mint, Owner: bob, Amount: 1})
	expectErr(t, err, bank.ErrUnauthorized)
	if _, err := f.engine.Dispatch(Request{Handler: HandlerOpenWallet, Signer: bob, Mint: mint, Owner: bob}); err != nil {
		t.Fatalf("open existing wallet: %v", err)
	}
}
