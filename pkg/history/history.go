// Package history provides the bounded undo/redo stack of IR snapshots.
// The stack is owned by the interactive foreground and is therefore
// unsynchronized; entries are deep-copied on the way in and out so no other
// component retains references into the stack.
package history

import "github.com/qutlas/designcore/pkg/intent"

// DefaultCapacity is the bound on retained snapshots. Exceeding it evicts
// the oldest entry and rebases the cursor.
const DefaultCapacity = 100

// Stack is a bounded, branch-clearing undo/redo stack of immutable
// Geometry IR snapshots.
type Stack struct {
	entries  []*intent.GeometryIR
	cursor   int // index of the current entry, -1 when empty
	capacity int
}

// New creates a stack with the default capacity.
func New() *Stack {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a stack bounded at the given number of entries.
func NewWithCapacity(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{
		entries:  make([]*intent.GeometryIR, 0, capacity),
		cursor:   -1,
		capacity: capacity,
	}
}

// Push appends a snapshot after the cursor. Any redo entries beyond the
// cursor are discarded; history is append-only forward.
func (s *Stack) Push(ir *intent.GeometryIR) {
	if ir == nil {
		return
	}

	// Drop the redo branch.
	s.entries = s.entries[:s.cursor+1]
	s.entries = append(s.entries, ir.Clone())
	s.cursor++

	if len(s.entries) > s.capacity {
		evict := len(s.entries) - s.capacity
		s.entries = append(s.entries[:0:0], s.entries[evict:]...)
		s.cursor -= evict
	}
}

// Current returns a copy of the snapshot at the cursor, or nil when empty.
func (s *Stack) Current() *intent.GeometryIR {
	if s.cursor < 0 {
		return nil
	}
	return s.entries[s.cursor].Clone()
}

// Undo moves the cursor back one entry and returns the snapshot there.
// It returns nil when there is nothing to undo.
func (s *Stack) Undo() *intent.GeometryIR {
	if !s.CanUndo() {
		return nil
	}
	s.cursor--
	return s.entries[s.cursor].Clone()
}

// Redo moves the cursor forward one entry and returns the snapshot there.
// It returns nil when there is nothing to redo.
func (s *Stack) Redo() *intent.GeometryIR {
	if !s.CanRedo() {
		return nil
	}
	s.cursor++
	return s.entries[s.cursor].Clone()
}

// CanUndo reports whether an earlier snapshot exists.
func (s *Stack) CanUndo() bool {
	return s.cursor > 0
}

// CanRedo reports whether a later snapshot exists.
func (s *Stack) CanRedo() bool {
	return s.cursor < len(s.entries)-1
}

// Len returns the number of retained snapshots.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Clear discards all snapshots.
func (s *Stack) Clear() {
	s.entries = s.entries[:0]
	s.cursor = -1
}
