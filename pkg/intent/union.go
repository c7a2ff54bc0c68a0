package intent

import (
	"encoding/json"
	"fmt"
)

// Intent is the closed union over primitive and operation intents. Exactly
// one of the two fields is set. The wire shape is untagged: an operation is
// recognized by the presence of its target field.
type Intent struct {
	Primitive *PrimitiveIntent
	Operation *OperationIntent
}

// NewPrimitive wraps a primitive intent.
func NewPrimitive(p PrimitiveIntent) Intent {
	return Intent{Primitive: &p}
}

// NewOperation wraps an operation intent.
func NewOperation(op OperationIntent) Intent {
	return Intent{Operation: &op}
}

// ID returns the intent's id regardless of variant.
func (in Intent) ID() string {
	if in.Primitive != nil {
		return in.Primitive.ID
	}
	if in.Operation != nil {
		return in.Operation.ID
	}
	return ""
}

// IsPrimitive reports whether the intent is a primitive creation.
func (in Intent) IsPrimitive() bool {
	return in.Primitive != nil
}

// Validate checks that exactly one variant is set and its kind is known.
func (in Intent) Validate() error {
	switch {
	case in.Primitive != nil && in.Operation != nil:
		return fmt.Errorf("intent %s has both primitive and operation variants", in.ID())
	case in.Primitive != nil:
		if in.Primitive.ID == "" {
			return fmt.Errorf("primitive intent has empty id")
		}
		return in.Primitive.Kind.Validate()
	case in.Operation != nil:
		if in.Operation.ID == "" {
			return fmt.Errorf("operation intent has empty id")
		}
		if in.Operation.Target == "" {
			return fmt.Errorf("operation intent %s has empty target", in.Operation.ID)
		}
		return in.Operation.Kind.Validate()
	default:
		return fmt.Errorf("empty intent")
	}
}

// MarshalJSON emits the active variant without a discriminator.
func (in Intent) MarshalJSON() ([]byte, error) {
	if in.Primitive != nil {
		return json.Marshal(in.Primitive)
	}
	if in.Operation != nil {
		return json.Marshal(in.Operation)
	}
	return nil, fmt.Errorf("cannot marshal empty intent")
}

// UnmarshalJSON distinguishes the variants by the presence of "target".
func (in *Intent) UnmarshalJSON(data []byte) error {
	var probe struct {
		Target *string `json:"target"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Target != nil {
		var op OperationIntent
		if err := json.Unmarshal(data, &op); err != nil {
			return err
		}
		in.Operation = &op
		in.Primitive = nil
		return nil
	}
	var p PrimitiveIntent
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	in.Primitive = &p
	in.Operation = nil
	return nil
}

func (in Intent) clone() Intent {
	var out Intent
	if in.Primitive != nil {
		p := *in.Primitive
		p.Parameters = cloneFloatMap(in.Primitive.Parameters)
		p.Transform = in.Primitive.Transform.clone()
		out.Primitive = &p
	}
	if in.Operation != nil {
		op := *in.Operation
		op.Parameters = cloneAnyMap(in.Operation.Parameters)
		out.Operation = &op
	}
	return out
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
