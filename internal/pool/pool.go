// Package pool provides the id-keyed registry used for textures, render
// buffers, shaders and pipelines.
//
// A Pool is a slot map. Every ID packs a 1-based slot index in its low
// bits and a generation counter in its high bits, so:
//
//   - ID 0 is never issued and always means "no resource".
//   - A fresh pool issues 1, 2, 3, ... in creation order.
//   - A freed slot is reused only under a new generation, which makes an
//     ID that refers to a released resource detectable (ErrStale) instead
//     of silently resolving to whatever now lives in the slot.
//   - Generations do not wrap. A slot freed at the last generation is
//     retired and never reused, so a slot can hold at most MaxGenerations
//     entries over the life of the pool.
//
// Pool is not safe for concurrent use.
package pool

import (
	"errors"
	"fmt"
)

// ID identifies an entry in a Pool. The zero value is invalid.
type ID uint32

// Invalid is the reserved "no resource" id.
const Invalid ID = 0

const (
	indexBits = 20
	indexMask = 1<<indexBits - 1

	// MaxEntries is the number of slots a pool can address.
	MaxEntries = indexMask

	genMask = 1<<(32-indexBits) - 1

	// MaxGenerations is the number of entries a single slot can hold
	// before it is retired.
	MaxGenerations = genMask + 1
)

// Pool errors.
var (
	// ErrInvalidID is returned for the reserved id 0.
	ErrInvalidID = errors.New("pool: invalid id")

	// ErrNotFound is returned for ids that were never issued by this pool.
	ErrNotFound = errors.New("pool: id not found")

	// ErrStale is returned for ids whose entry has been removed.
	ErrStale = errors.New("pool: id refers to a released entry")

	// ErrFull is returned when no slot is left.
	ErrFull = errors.New("pool: full")
)

func makeID(index int, gen uint32) ID {
	// #nosec G115 -- index is bounded by MaxEntries
	return ID(gen<<indexBits | uint32(index+1))
}

// Index returns the 0-based slot index encoded in the id.
func (id ID) Index() int { return int(uint32(id)&indexMask) - 1 }

// Generation returns the generation encoded in the id.
func (id ID) Generation() uint32 { return uint32(id) >> indexBits }

// IsValid reports whether id is not the reserved zero id.
func (id ID) IsValid() bool { return id != Invalid }

func (id ID) String() string {
	if id == Invalid {
		return "invalid"
	}
	return fmt.Sprintf("%d@%d", id.Index()+1, id.Generation())
}

type slot[T any] struct {
	gen     uint32
	live    bool
	retired bool
	value   T
}

// Pool is a generational slot map of values of type T.
type Pool[T any] struct {
	slots []slot[T]
	free  []int
	live  int
}

// New creates an empty pool with room for capacity entries before growing.
func New[T any](capacity int) *Pool[T] {
	return &Pool[T]{slots: make([]slot[T], 0, capacity)}
}

// Add stores v and returns its id.
func (p *Pool[T]) Add(v T) (ID, error) {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		s := &p.slots[idx]
		s.live = true
		s.value = v
		p.live++
		return makeID(idx, s.gen), nil
	}
	if len(p.slots) >= MaxEntries {
		return Invalid, ErrFull
	}
	p.slots = append(p.slots, slot[T]{live: true, value: v})
	p.live++
	return makeID(len(p.slots)-1, 0), nil
}

func (p *Pool[T]) lookup(id ID) (*slot[T], error) {
	if id == Invalid {
		return nil, ErrInvalidID
	}
	idx := id.Index()
	if idx < 0 || idx >= len(p.slots) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	s := &p.slots[idx]
	switch gen := id.Generation(); {
	case gen > s.gen:
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	case gen < s.gen || !s.live:
		return nil, fmt.Errorf("%w: %v", ErrStale, id)
	}
	return s, nil
}

// Get returns the value stored under id.
func (p *Pool[T]) Get(id ID) (T, error) {
	s, err := p.lookup(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Contains reports whether id refers to a live entry.
func (p *Pool[T]) Contains(id ID) bool {
	_, err := p.lookup(id)
	return err == nil
}

// Set replaces the value stored under a live id.
func (p *Pool[T]) Set(id ID, v T) error {
	s, err := p.lookup(id)
	if err != nil {
		return err
	}
	s.value = v
	return nil
}

// Remove deletes the entry and returns its value. The slot becomes
// reusable under the next generation, or is retired after its last one.
func (p *Pool[T]) Remove(id ID) (T, error) {
	var zero T
	s, err := p.lookup(id)
	if err != nil {
		return zero, err
	}
	v := s.value
	p.release(s, id.Index())
	p.live--
	return v, nil
}

// release frees a live slot and queues it for reuse under the next
// generation, or retires it when the generations are used up.
func (p *Pool[T]) release(s *slot[T], idx int) {
	var zero T
	s.value = zero
	s.live = false
	if s.gen == genMask {
		s.retired = true
		return
	}
	s.gen++
	p.free = append(p.free, idx)
}

// Len returns the number of live entries.
func (p *Pool[T]) Len() int { return p.live }

// Each calls fn for every live entry in ascending slot order. Returning
// false stops the iteration. fn must not add or remove entries.
func (p *Pool[T]) Each(fn func(id ID, v T) bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if !s.live {
			continue
		}
		if !fn(makeID(i, s.gen), s.value) {
			return
		}
	}
}

// IDs returns the live ids in ascending slot order.
func (p *Pool[T]) IDs() []ID {
	ids := make([]ID, 0, p.live)
	p.Each(func(id ID, _ T) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Clear removes every entry. Outstanding ids become stale.
func (p *Pool[T]) Clear() {
	p.free = p.free[:0]
	for i := len(p.slots) - 1; i >= 0; i-- {
		switch s := &p.slots[i]; {
		case s.live:
			p.release(s, i)
		case !s.retired:
			p.free = append(p.free, i)
		}
	}
	p.live = 0
}
