package common

import (
	"errors"
	"testing"
)

func TestGuardNilView(t *testing.T) {
	if err := Guard(nil, "create_tree"); err != nil {
		t.Fatalf("expected nil view to allow handler, got %v", err)
	}
	var set *PauseSet
	if err := Guard(set, "create_tree"); err != nil {
		t.Fatalf("expected nil set to allow handler, got %v", err)
	}
}

func TestPauseSetToggle(t *testing.T) {
	set := NewPauseSet("set_bribe", "")
	if err := Guard(set, "set_bribe"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(set, "claim_bribe"); err != nil {
		t.Fatalf("unexpected error for unpaused handler: %v", err)
	}
	set.Pause("claim_bribe")
	if got := set.List(); len(got) != 2 || got[0] != "claim_bribe" || got[1] != "set_bribe" {
		t.Fatalf("unexpected paused list %v", got)
	}
	set.Resume("set_bribe")
	if err := Guard(set, "set_bribe"); err != nil {
		t.Fatalf("expected resumed handler to pass, got %v", err)
	}
}
