package state

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const lockStripes = 256

// lockTable serialises requests whose record sets overlap. Record ids are
// uniformly distributed hashes so the first byte is a fair stripe selector.
type lockTable struct {
	stripes [lockStripes]sync.Mutex
}

// acquire locks every stripe touched by ids in ascending order and returns the
// matching release function.
func (l *lockTable) acquire(ids map[common.Hash]struct{}) func() {
	seen := make(map[int]struct{}, len(ids))
	order := make([]int, 0, len(ids))
	for id := range ids {
		idx := int(id[0])
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		order = append(order, idx)
	}
	sort.Ints(order)
	for _, idx := range order {
		l.stripes[idx].Lock()
	}
	return func() {
		for i := len(order) - 1; i >= 0; i-- {
			l.stripes[order[i]].Unlock()
		}
	}
}
