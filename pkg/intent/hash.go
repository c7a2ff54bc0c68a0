package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// HashPrefix is the stable prefix of every content hash.
const HashPrefix = "intent_"

// HashIR computes the deterministic content hash of an IR. The hash is a
// pure function of semantic content: parameter maps are serialized with
// keys sorted, the operation sequence is ordered by intent id, and
// transient fields (timestamps) are excluded. Two IRs built from the same
// logical design in different construction order hash identically.
// HashIR never fails for structurally valid input.
func HashIR(ir *GeometryIR) string {
	canonical := canonicalIR(ir)
	data, err := json.Marshal(canonical)
	if err != nil {
		// Unreachable for structurally valid IRs; hash the part name so the
		// function stays total.
		data = []byte(ir.Part)
	}
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// HashJSON computes a content hash over arbitrary JSON, normalizing object
// key order and whitespace. It is used for cache keys on raw payloads that
// never pass through the typed IR.
func HashJSON(raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Not JSON: normalize whitespace only.
		compact := strings.Join(strings.Fields(string(raw)), "")
		sum := sha256.Sum256([]byte(compact))
		return HashPrefix + hex.EncodeToString(sum[:])
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		normalized = raw
	}
	sum := sha256.Sum256(normalized)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// canonicalIR projects an IR into a sorted, transient-free shape. Go's
// encoding/json already emits map keys in sorted order, which covers the
// parameter mappings; the operation sequence is sorted by intent id here.
func canonicalIR(ir *GeometryIR) map[string]any {
	ops := make([]Intent, len(ir.Operations))
	copy(ops, ir.Operations)
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].ID() < ops[j].ID()
	})

	canonicalOps := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		canonicalOps = append(canonicalOps, canonicalIntent(op))
	}

	constraints := make([]map[string]any, 0, len(ir.Constraints))
	for _, c := range ir.Constraints {
		constraints = append(constraints, map[string]any{
			"type":  c.Kind,
			"value": c.Value,
		})
	}

	return map[string]any{
		"part":        ir.Part,
		"operations":  canonicalOps,
		"constraints": constraints,
	}
}

func canonicalIntent(in Intent) map[string]any {
	if p := in.Primitive; p != nil {
		out := map[string]any{
			"id":         p.ID,
			"type":       p.Kind,
			"parameters": p.Parameters,
		}
		if p.Transform != nil {
			out["transform"] = canonicalTransform(p.Transform)
		}
		return out
	}
	op := in.Operation
	out := map[string]any{
		"id":         op.ID,
		"type":       op.Kind,
		"target":     op.Target,
		"parameters": op.Parameters,
	}
	if op.Operand != "" {
		out["operand"] = op.Operand
	}
	return out
}

func canonicalTransform(t *Transform) map[string]any {
	out := make(map[string]any, 3)
	if t.Position != nil {
		out["position"] = *t.Position
	}
	if t.Rotation != nil {
		out["rotation"] = *t.Rotation
	}
	if t.Scale != nil {
		out["scale"] = *t.Scale
	}
	return out
}

// VerifyHash reports whether the attached hash matches the IR's content.
func VerifyHash(ir *GeometryIR, hash string) bool {
	return HashIR(ir) == hash
}
