package index

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/core/state"
)

// NoteContent is the descriptive payload of a note.
type NoteContent struct {
	Title       string
	Website     string
	Image       string
	Description string
}

// CreateNote authors an unlocated note in forest.
func (e *Engine) CreateNote(signer [20]byte, forest common.Hash, key [32]byte, content NoteContent) (*Note, error) {
	note, _, err := e.createNote(signer, forest, key, content)
	return note, err
}

func (e *Engine) createNote(signer [20]byte, forestID common.Hash, key [32]byte, content NoteContent) (*Note, *state.Receipt, error) {
	for _, field := range []struct{ name, value string }{
		{"title", content.Title},
		{"website", content.Website},
		{"image", content.Image},
		{"description", content.Description},
	} {
		if err := e.checkString(field.name, field.value); err != nil {
			return nil, nil, err
		}
	}
	id := NoteID(forestID, key)
	var note *Note
	receipt, err := e.execute(HandlerCreateNote, []common.Hash{forestID, id}, func(tx *state.Tx) error {
		if _, err := loadForest(tx, forestID); err != nil {
			return err
		}
		n := &Note{
			ID:          id,
			Key:         key,
			Forest:      forestID,
			Author:      signer,
			Title:       content.Title,
			Website:     content.Website,
			Image:       content.Image,
			Description: content.Description,
		}
		if err := create(tx, id, KindNote, signer, n); err != nil {
			return err
		}
		tx.Emit(noteCreatedEvent(n))
		note = n
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return note, receipt, nil
}

// AttachNote places an unlocated note on an empty node of its forest. The
// node takes over the note's stake.
func (e *Engine) AttachNote(signer [20]byte, node, note common.Hash) error {
	_, err := e.attachNote(signer, node, note)
	return err
}

func (e *Engine) attachNote(_ [20]byte, nodeID, noteID common.Hash) (*state.Receipt, error) {
	return e.execute(HandlerAttachNote, []common.Hash{nodeID, noteID}, func(tx *state.Tx) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		note, err := loadNote(tx, noteID)
		if err != nil {
			return err
		}
		tree, err := loadTree(tx, node.Tree)
		if err != nil {
			return err
		}
		if note.Forest != tree.Forest {
			return ErrNotChildNote
		}
		if node.HasNote() {
			return fmt.Errorf("%w: node holds %s", ErrAlreadyOnNode, node.Note.Hex())
		}
		if note.Located() {
			return fmt.Errorf("%w: note is on %s", ErrAlreadyOnNode, note.Location.Hex())
		}
		node.Note = note.ID
		node.Stake = note.Stake
		note.Location = node.ID
		if err := save(tx, node.ID, KindNode, node); err != nil {
			return err
		}
		if err := save(tx, note.ID, KindNote, note); err != nil {
			return err
		}
		tx.Emit(noteLocationEvent(EventTypeNoteAttached, note.ID, common.Hash{}, node.ID))
		return nil
	})
}

// MoveNote relocates note from one node to another empty node of the same
// forest, carrying its stake along.
func (e *Engine) MoveNote(signer [20]byte, from, to, note common.Hash) error {
	_, err := e.moveNote(signer, from, to, note)
	return err
}

func (e *Engine) moveNote(_ [20]byte, fromID, toID, noteID common.Hash) (*state.Receipt, error) {
	return e.execute(HandlerMoveNote, []common.Hash{fromID, toID, noteID}, func(tx *state.Tx) error {
		note, err := loadNote(tx, noteID)
		if err != nil {
			return err
		}
		from, err := loadNode(tx, fromID)
		if err != nil {
			return err
		}
		if from.Note != note.ID || note.Location != from.ID {
			return ErrNotOnNode
		}
		if fromID == toID {
			return ErrAlreadyOnNode
		}
		to, err := loadNode(tx, toID)
		if err != nil {
			return err
		}
		tree, err := loadTree(tx, to.Tree)
		if err != nil {
			return err
		}
		if note.Forest != tree.Forest {
			return ErrNotChildNote
		}
		if to.HasNote() {
			return fmt.Errorf("%w: node holds %s", ErrAlreadyOnNode, to.Note.Hex())
		}
		from.Note = common.Hash{}
		from.Stake = 0
		to.Note = note.ID
		to.Stake = note.Stake
		note.Location = to.ID
		for _, n := range []*Node{from, to} {
			if err := save(tx, n.ID, KindNode, n); err != nil {
				return err
			}
		}
		if err := save(tx, note.ID, KindNote, note); err != nil {
			return err
		}
		tx.Emit(noteLocationEvent(EventTypeNoteMoved, note.ID, from.ID, to.ID))
		return nil
	})
}

// ReplaceNote swaps the note on node for an unlocated challenger carrying
// strictly more stake. The incumbent becomes unlocated.
func (e *Engine) ReplaceNote(signer [20]byte, node, incumbent, challenger common.Hash) error {
	_, err := e.replaceNote(signer, node, incumbent, challenger)
	return err
}

func (e *Engine) replaceNote(_ [20]byte, nodeID, incumbentID, challengerID common.Hash) (*state.Receipt, error) {
	return e.execute(HandlerReplaceNote, []common.Hash{nodeID, incumbentID, challengerID}, func(tx *state.Tx) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		incumbent, err := loadNote(tx, incumbentID)
		if err != nil {
			return err
		}
		challenger, err := loadNote(tx, challengerID)
		if err != nil {
			return err
		}
		if node.Note != incumbent.ID || incumbent.Location != node.ID {
			return ErrNotOnNode
		}
		if challenger.Forest != incumbent.Forest {
			return ErrNotChildNote
		}
		if challenger.Stake <= incumbent.Stake {
			return fmt.Errorf("%w: challenger %d, incumbent %d", ErrNotEnoughStake, challenger.Stake, incumbent.Stake)
		}
		if challenger.Located() {
			return fmt.Errorf("%w: note is on %s", ErrAlreadyOnNode, challenger.Location.Hex())
		}
		incumbent.Location = common.Hash{}
		challenger.Location = node.ID
		node.Note = challenger.ID
		node.Stake = challenger.Stake
		if err := save(tx, node.ID, KindNode, node); err != nil {
			return err
		}
		for _, n := range []*Note{incumbent, challenger} {
			if err := save(tx, n.ID, KindNote, n); err != nil {
				return err
			}
		}
		tx.Emit(noteReplacedEvent(node.ID, incumbent, challenger))
		return nil
	})
}
