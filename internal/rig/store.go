package rig

import (
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// Lock is the rotation a locked bone is held at.
type Lock struct {
	Rotation math.Euler
}

// Store holds the discovered bones and the locked-bone set.
type Store struct {
	bones  []*skeleton.Node
	set    map[*skeleton.Node]bool
	byName map[string]*skeleton.Node
	locked map[*skeleton.Node]Lock
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		set:    make(map[*skeleton.Node]bool),
		byName: make(map[string]*skeleton.Node),
		locked: make(map[*skeleton.Node]Lock),
	}
}

// Add appends a bone. The first bone registered under a name wins lookups.
func (s *Store) Add(b *skeleton.Node) {
	if b == nil || s.set[b] {
		return
	}
	s.bones = append(s.bones, b)
	s.set[b] = true
	if _, ok := s.byName[b.Name]; !ok {
		s.byName[b.Name] = b
	}
}

// Bones returns the bones in discovery order. The slice must not be modified.
func (s *Store) Bones() []*skeleton.Node { return s.bones }

// Len returns the number of bones.
func (s *Store) Len() int { return len(s.bones) }

// Find returns the bone with the given name or nil.
func (s *Store) Find(name string) *skeleton.Node { return s.byName[name] }

// Contains reports whether b is one of the store's bones.
func (s *Store) Contains(b *skeleton.Node) bool {
	return s.set[b]
}

// Lock snapshots the bone's current rotation and adds it to the locked set.
// Locking an already locked bone keeps the original snapshot.
func (s *Store) Lock(b *skeleton.Node) {
	if b == nil {
		return
	}
	if _, ok := s.locked[b]; ok {
		return
	}
	s.locked[b] = Lock{Rotation: b.Rotation()}
}

// Unlock removes the bone from the locked set.
func (s *Store) Unlock(b *skeleton.Node) {
	delete(s.locked, b)
}

// IsLocked reports whether b is locked.
func (s *Store) IsLocked(b *skeleton.Node) bool {
	_, ok := s.locked[b]
	return ok
}

// Locked returns the locked bones in discovery order.
func (s *Store) Locked() []*skeleton.Node {
	var out []*skeleton.Node
	for _, b := range s.bones {
		if s.IsLocked(b) {
			out = append(out, b)
		}
	}
	return out
}

// RestoreLocked forces every locked bone back to its snapshot rotation.
func (s *Store) RestoreLocked() {
	for b, l := range s.locked {
		b.SetRotation(l.Rotation)
	}
}

// Clear drops all bones and locks.
func (s *Store) Clear() {
	s.bones = nil
	s.set = make(map[*skeleton.Node]bool)
	s.byName = make(map[string]*skeleton.Node)
	s.locked = make(map[*skeleton.Node]Lock)
}
