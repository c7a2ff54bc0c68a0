package history

import (
	"fmt"
	"testing"

	"github.com/qutlas/designcore/pkg/intent"
)

func snapshot(part string) *intent.GeometryIR {
	ir := &intent.GeometryIR{Part: part}
	ir.Hash = intent.HashIR(ir)
	return ir
}

func TestStack_UndoRedo(t *testing.T) {
	s := New()
	a := snapshot("a")
	b := snapshot("b")

	s.Push(a)
	s.Push(b)

	got := s.Undo()
	if got == nil || got.Part != "a" {
		t.Fatalf("undo after pushing a,b must return a, got %v", got)
	}

	got = s.Redo()
	if got == nil || got.Part != "b" {
		t.Fatalf("redo must return b, got %v", got)
	}
}

func TestStack_PushAfterUndoClearsRedo(t *testing.T) {
	s := New()
	s.Push(snapshot("a"))
	s.Push(snapshot("b"))

	s.Undo()
	s.Push(snapshot("c"))

	if s.CanRedo() {
		t.Errorf("push after undo must discard the redo branch")
	}
	if cur := s.Current(); cur == nil || cur.Part != "c" {
		t.Errorf("current must be the newly pushed entry")
	}
}

func TestStack_CapEvictsOldest(t *testing.T) {
	s := New()
	for i := 0; i < 150; i++ {
		s.Push(snapshot(fmt.Sprintf("part%03d", i)))
	}

	if s.Len() != 100 {
		t.Fatalf("expected exactly 100 retained entries, got %d", s.Len())
	}

	// Walk all the way back; the oldest accessible entry is the 50th push.
	var last *intent.GeometryIR
	for s.CanUndo() {
		last = s.Undo()
	}
	if last == nil || last.Part != "part050" {
		t.Errorf("oldest accessible entry = %v, want part050", last)
	}
}

func TestStack_EmptyBehavior(t *testing.T) {
	s := New()

	if s.Current() != nil {
		t.Errorf("empty stack has no current entry")
	}
	if s.Undo() != nil || s.Redo() != nil {
		t.Errorf("undo/redo on empty stack must return nil")
	}
	if s.CanUndo() || s.CanRedo() {
		t.Errorf("empty stack can neither undo nor redo")
	}

	s.Push(nil) // ignored
	if s.Len() != 0 {
		t.Errorf("pushing nil must be a no-op")
	}
}

func TestStack_EntriesAreIsolated(t *testing.T) {
	s := New()
	original := &intent.GeometryIR{
		Part: "part",
		Operations: []intent.Intent{intent.NewPrimitive(intent.PrimitiveIntent{
			ID:         "box1",
			Kind:       intent.PrimitiveBox,
			Parameters: map[string]float64{"width": 1},
		})},
	}
	s.Push(original)

	// Mutating the pushed IR afterwards must not affect the stored snapshot.
	original.Operations[0].Primitive.Parameters["width"] = 999

	got := s.Current()
	if got.Operations[0].Primitive.Parameters["width"] != 1 {
		t.Errorf("stack must own deep copies of pushed snapshots")
	}

	// Mutating a returned snapshot must not affect the stack either.
	got.Part = "mutated"
	if s.Current().Part != "part" {
		t.Errorf("returned snapshots must be copies")
	}
}

func TestStack_Clear(t *testing.T) {
	s := New()
	s.Push(snapshot("a"))
	s.Push(snapshot("b"))

	s.Clear()

	if s.Len() != 0 || s.Current() != nil || s.CanUndo() || s.CanRedo() {
		t.Errorf("clear must reset the stack completely")
	}
}
