// Package lookuptable implements the per-node L×2 neighbor table at
// the heart of the skip graph: for each level 0..L-1, a left and a
// right neighbor slot.
package lookuptable

import (
	"sync"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
)

// slot holds one (level, direction) entry. The zero value means
// "empty".
type slot struct {
	neighbor domain.NodeIdentity
	set      bool
}

// LookupTable is the concurrent-safe L×2 neighbor table owned by a
// single node. One sync.RWMutex guards the whole array: the table is
// small (L <= 64 in any realistic deployment) and contention is low,
// so a single lock avoids the lock-ordering hazards per-slot locking
// would introduce.
type LookupTable struct {
	self  domain.NodeIdentity
	space domain.Space
	lgr   logger.Logger

	mu     sync.RWMutex
	left   []slot // indexed by level
	right  []slot
}

// New creates an empty lookup table for self, sized to space.Levels.
func New(self domain.NodeIdentity, space domain.Space, opts ...Option) *LookupTable {
	t := &LookupTable{
		self:  self,
		space: space,
		lgr:   &logger.NopLogger{},
		left:  make([]slot, space.Levels),
		right: make([]slot, space.Levels),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *LookupTable) slots(dir domain.Direction) []slot {
	if dir == domain.DirectionLeft {
		return t.left
	}
	return t.right
}

// GetEntry returns the neighbor at (level, direction), and whether a
// neighbor is set there. It is constant time and read-only.
func (t *LookupTable) GetEntry(level int, dir domain.Direction) (domain.NodeIdentity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getEntryLocked(level, dir)
}

func (t *LookupTable) getEntryLocked(level int, dir domain.Direction) (domain.NodeIdentity, bool) {
	if level < 0 || level >= t.space.Levels || !dir.Valid() {
		return domain.NodeIdentity{}, false
	}
	s := t.slots(dir)[level]
	return s.neighbor, s.set
}

// UpdateEntry replaces the entry at (level, direction) with n,
// enforcing the lookup table invariants:
//   - n must not be self (same address as self).
//   - n's membership vector must share a common prefix of at least
//     `level` bits with self's membership vector.
//   - n's identifier must be on the correct side of self for dir.
func (t *LookupTable) UpdateEntry(level int, dir domain.Direction, n domain.NodeIdentity) error {
	if level < 0 || level >= t.space.Levels {
		return domain.Invariantf("lookuptable: level %d out of range [0,%d)", level, t.space.Levels)
	}
	if !dir.Valid() {
		return domain.Invariantf("lookuptable: invalid direction %v", dir)
	}
	if n.Address.Equal(t.self.Address) {
		return domain.Invariantf("lookuptable: cannot set self (%s) as its own neighbor", n.Address)
	}
	if n.MemVec.CommonPrefixLength(t.self.MemVec) < level {
		return domain.Invariantf("lookuptable: neighbor %s shares fewer than %d prefix bits with self", n.ID, level)
	}
	if dir == domain.DirectionRight && n.ID.Cmp(t.self.ID) <= 0 {
		return domain.Invariantf("lookuptable: right neighbor %s is not greater than self %s", n.ID, t.self.ID)
	}
	if dir == domain.DirectionLeft && n.ID.Cmp(t.self.ID) >= 0 {
		return domain.Invariantf("lookuptable: left neighbor %s is not less than self %s", n.ID, t.self.ID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots(dir)[level] = slot{neighbor: n, set: true}
	t.lgr.Debug("updated lookup table slot",
		logger.F("level", level), logger.F("direction", dir.String()), logger.F("neighbor", n.ID.String()))
	return nil
}

// RemoveEntry clears the entry at (level, direction) and returns the
// neighbor that was there, if any.
func (t *LookupTable) RemoveEntry(level int, dir domain.Direction) (domain.NodeIdentity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if level < 0 || level >= t.space.Levels || !dir.Valid() {
		return domain.NodeIdentity{}, false
	}
	s := t.slots(dir)[level]
	t.slots(dir)[level] = slot{}
	if s.set {
		t.lgr.Debug("removed lookup table slot", logger.F("level", level), logger.F("direction", dir.String()))
	}
	return s.neighbor, s.set
}

// Entry names one populated slot, returned by Neighbors.
type Entry struct {
	Level     int
	Direction domain.Direction
	Neighbor  domain.NodeIdentity
}

// Neighbors returns a snapshot of every populated slot, taken under a
// single shared lock acquisition. The returned slice is safe to read
// without synchronization and is unaffected by later mutation of t.
func (t *LookupTable) Neighbors() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, 2*t.space.Levels)
	for level := 0; level < t.space.Levels; level++ {
		if s := t.left[level]; s.set {
			out = append(out, Entry{Level: level, Direction: domain.DirectionLeft, Neighbor: s.neighbor})
		}
		if s := t.right[level]; s.set {
			out = append(out, Entry{Level: level, Direction: domain.DirectionRight, Neighbor: s.neighbor})
		}
	}
	return out
}

// Equal reports whether t and other hold the same populated slots
// (structural equality, compared via two Neighbors snapshots).
func (t *LookupTable) Equal(other *LookupTable) bool {
	a, b := t.Neighbors(), other.Neighbors()
	if len(a) != len(b) {
		return false
	}
	idx := make(map[[2]int]domain.NodeIdentity, len(a))
	for _, e := range a {
		idx[[2]int{e.Level, int(e.Direction)}] = e.Neighbor
	}
	for _, e := range b {
		want, ok := idx[[2]int{e.Level, int(e.Direction)}]
		if !ok || !want.Equal(e.Neighbor) {
			return false
		}
	}
	return true
}

// Levels returns the number of levels this table was sized for.
func (t *LookupTable) Levels() int {
	return t.space.Levels
}
