package intent

import (
	"strings"
	"testing"
)

func makeIR(ids ...string) *GeometryIR {
	ir := &GeometryIR{Part: "test_part"}
	for _, id := range ids {
		ir.Operations = append(ir.Operations, NewPrimitive(PrimitiveIntent{
			ID:         id,
			Kind:       PrimitiveBox,
			Parameters: map[string]float64{"width": 10, "height": 20, "depth": 30},
			Timestamp:  1000,
		}))
	}
	return ir
}

func TestHashIR_Deterministic(t *testing.T) {
	ir := makeIR("box1")

	hash1 := HashIR(ir)
	hash2 := HashIR(ir)

	if hash1 != hash2 {
		t.Fatalf("expected identical hashes, got %s and %s", hash1, hash2)
	}
	if !strings.HasPrefix(hash1, HashPrefix) {
		t.Errorf("expected hash prefix %q, got %s", HashPrefix, hash1)
	}
}

func TestHashIR_OrderIndependent(t *testing.T) {
	a := makeIR("box1", "box2", "box3")
	b := makeIR("box3", "box1", "box2")

	if HashIR(a) != HashIR(b) {
		t.Errorf("reordered operation sequences must hash identically")
	}
}

func TestHashIR_ParameterChange(t *testing.T) {
	a := makeIR("box1")
	b := a.Clone()
	b.Operations[0].Primitive.Parameters["width"] = 11

	if HashIR(a) == HashIR(b) {
		t.Errorf("IRs differing in one numeric parameter must hash differently")
	}
}

func TestHashIR_TimestampExcluded(t *testing.T) {
	a := makeIR("box1")
	b := a.Clone()
	b.Operations[0].Primitive.Timestamp = 9999

	if HashIR(a) != HashIR(b) {
		t.Errorf("timestamps must not participate in content addressing")
	}
}

func TestHashIR_DifferentParts(t *testing.T) {
	a := &GeometryIR{Part: "test_part"}
	b := &GeometryIR{Part: "other_part"}

	if HashIR(a) == HashIR(b) {
		t.Errorf("different part names must hash differently")
	}
}

func TestHashIR_OperationIntentFields(t *testing.T) {
	base := makeIR("box1")
	withOp := base.Clone()
	withOp.Operations = append(withOp.Operations, NewOperation(OperationIntent{
		ID:         "op1",
		Kind:       OperationFillet,
		Target:     "box1",
		Parameters: map[string]any{"radius": 2.0},
		Timestamp:  500,
	}))

	if HashIR(base) == HashIR(withOp) {
		t.Errorf("appending an operation must change the hash")
	}

	// Same operation content at a different timestamp hashes identically.
	later := withOp.Clone()
	later.Operations[1].Operation.Timestamp = 777
	if HashIR(withOp) != HashIR(later) {
		t.Errorf("operation timestamps must not affect the hash")
	}
}

func TestHashJSON_KeyOrderNormalized(t *testing.T) {
	h1 := HashJSON([]byte(`{ "a": 1, "b": 2 }`))
	h2 := HashJSON([]byte(`{"b":2,"a":1}`))

	if h1 != h2 {
		t.Errorf("key order and whitespace must not affect HashJSON")
	}
}

func TestHashJSON_NonJSONInput(t *testing.T) {
	h := HashJSON([]byte("not json at all"))
	if !strings.HasPrefix(h, HashPrefix) {
		t.Errorf("HashJSON must stay total for non-JSON input, got %s", h)
	}
}

func TestVerifyHash(t *testing.T) {
	ir := makeIR("box1")
	hash := HashIR(ir)

	if !VerifyHash(ir, hash) {
		t.Errorf("VerifyHash must accept the IR's own hash")
	}
	if VerifyHash(ir, "intent_bogus") {
		t.Errorf("VerifyHash must reject a mismatched hash")
	}
}
