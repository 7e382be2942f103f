package index

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCreateNoteValidatesContent(t *testing.T) {
	f := newFixture(t, 0)
	max := DefaultParams().MaxStringLength
	if _, err := f.engine.CreateNote(aliceAddr, f.forest.ID, testKey("ok"), NoteContent{Title: strings.Repeat("t", max)}); err != nil {
		t.Fatalf("title at limit must be accepted: %v", err)
	}
	_, err := f.engine.CreateNote(aliceAddr, f.forest.ID, testKey("long"), NoteContent{Description: strings.Repeat("d", max+1)})
	expectErr(t, err, ErrStringTooLong)
	_, err = f.engine.CreateNote(aliceAddr, common.Hash{0x01}, testKey("orphan"), NoteContent{})
	expectErr(t, err, ErrInvalidNode)
	_, err = f.engine.CreateNote(aliceAddr, f.forest.ID, testKey("ok"), NoteContent{})
	expectErr(t, err, ErrAlreadyExists)
}

func TestAttachNote(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	jazz := f.attachedChild(root, "jazz")
	rock := f.attachedChild(root, "rock")
	note := f.note("kind-of-blue")

	if err := f.engine.AttachNote(aliceAddr, jazz.ID, note.ID); err != nil {
		t.Fatalf("attach note: %v", err)
	}
	if got := f.loadNote(note.ID).Location; got != jazz.ID {
		t.Fatalf("unexpected location %s", got.Hex())
	}
	expectErr(t, f.engine.AttachNote(aliceAddr, rock.ID, note.ID), ErrAlreadyOnNode)
	expectErr(t, f.engine.AttachNote(aliceAddr, jazz.ID, f.note("second").ID), ErrAlreadyOnNode)

	other := newFixture(t, 0)
	foreign := other.note("foreign")
	// A note id from another store simply does not exist here.
	expectErr(t, f.engine.AttachNote(aliceAddr, rock.ID, foreign.ID), ErrInvalidNode)
}

func TestAttachNoteRejectsForeignForest(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	second, err := f.engine.CreateForest(adminAddr, testKey("second"), ForestArgs{Admin: adminAddr, VoteMint: f.mint})
	if err != nil {
		t.Fatalf("create forest: %v", err)
	}
	note, err := f.engine.CreateNote(aliceAddr, second.ID, testKey("stray"), NoteContent{})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	expectErr(t, f.engine.AttachNote(aliceAddr, root.ID, note.ID), ErrNotChildNote)
}

func TestMoveNoteRoundTrip(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	a := f.attachedChild(root, "jazz")
	b := f.attachedChild(root, "rock")
	note := f.note("kind-of-blue")
	if err := f.engine.AttachNote(aliceAddr, a.ID, note.ID); err != nil {
		t.Fatalf("attach note: %v", err)
	}
	f.stake(bobAddr, note, 40)

	if err := f.engine.MoveNote(aliceAddr, a.ID, b.ID, note.ID); err != nil {
		t.Fatalf("move note: %v", err)
	}
	if f.node(a.ID).Stake != 0 || f.node(a.ID).HasNote() || f.node(b.ID).Stake != 40 {
		t.Fatalf("stake did not follow the note")
	}
	expectErr(t, f.engine.MoveNote(aliceAddr, a.ID, b.ID, note.ID), ErrNotOnNode)

	if err := f.engine.MoveNote(aliceAddr, b.ID, a.ID, note.ID); err != nil {
		t.Fatalf("move note back: %v", err)
	}
	if f.node(a.ID).Stake != 40 || f.node(b.ID).Stake != 0 || f.loadNote(note.ID).Location != a.ID {
		t.Fatalf("round trip did not restore state")
	}

	blocker := f.note("blocker")
	if err := f.engine.AttachNote(aliceAddr, b.ID, blocker.ID); err != nil {
		t.Fatalf("attach blocker: %v", err)
	}
	expectErr(t, f.engine.MoveNote(aliceAddr, a.ID, b.ID, note.ID), ErrAlreadyOnNode)
	expectErr(t, f.engine.MoveNote(aliceAddr, a.ID, a.ID, note.ID), ErrAlreadyOnNode)
}

func TestReplaceNoteDisplacement(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	n := f.attachedChild(root, "jazz")
	t1 := f.note("t1")
	t2 := f.note("t2")
	if err := f.engine.AttachNote(aliceAddr, n.ID, t1.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}
	f.stake(bobAddr, t1, 5)
	f.stake(carolAddr, t2, 6)

	expectErr(t, f.engine.ReplaceNote(aliceAddr, n.ID, t2.ID, t1.ID), ErrNotOnNode)
	if err := f.engine.ReplaceNote(aliceAddr, n.ID, t1.ID, t2.ID); err != nil {
		t.Fatalf("replace note: %v", err)
	}
	if f.loadNote(t1.ID).Located() {
		t.Fatalf("displaced note must be unlocated")
	}
	node := f.node(n.ID)
	if node.Note != t2.ID || node.Stake != 6 {
		t.Fatalf("unexpected node state note=%s stake=%d", node.Note.Hex(), node.Stake)
	}
	// t1 now carries less stake than t2.
	expectErr(t, f.engine.ReplaceNote(aliceAddr, n.ID, t2.ID, t1.ID), ErrNotEnoughStake)
}

func TestReplaceNoteRejectsLocatedChallenger(t *testing.T) {
	f := newFixture(t, 0)
	_, root := f.tree("music")
	a := f.attachedChild(root, "jazz")
	b := f.attachedChild(root, "rock")
	low, high := f.note("low"), f.note("high")
	if err := f.engine.AttachNote(aliceAddr, a.ID, low.ID); err != nil {
		t.Fatalf("attach low: %v", err)
	}
	if err := f.engine.AttachNote(aliceAddr, b.ID, high.ID); err != nil {
		t.Fatalf("attach high: %v", err)
	}
	f.stake(bobAddr, high, 9)
	expectErr(t, f.engine.ReplaceNote(aliceAddr, a.ID, low.ID, high.ID), ErrAlreadyOnNode)
}
