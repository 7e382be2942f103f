package common

import (
	"errors"
	"sort"
	"sync"
)

var ErrModulePaused = errors.New("handler paused")

type PauseView interface {
	IsPaused(name string) bool
}

// Guard rejects work for a paused handler. A nil view pauses nothing.
func Guard(p PauseView, name string) error {
	if p == nil || name == "" {
		return nil
	}
	if p.IsPaused(name) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a mutable PauseView safe for concurrent use.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]struct{}
}

func NewPauseSet(names ...string) *PauseSet {
	p := &PauseSet{paused: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if name != "" {
			p.paused[name] = struct{}{}
		}
	}
	return p
}

func (p *PauseSet) IsPaused(name string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.paused[name]
	return ok
}

func (p *PauseSet) Pause(name string) {
	p.mu.Lock()
	p.paused[name] = struct{}{}
	p.mu.Unlock()
}

func (p *PauseSet) Resume(name string) {
	p.mu.Lock()
	delete(p.paused, name)
	p.mu.Unlock()
}

// List returns the paused handler names in sorted order.
func (p *PauseSet) List() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.paused))
	for name := range p.paused {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
