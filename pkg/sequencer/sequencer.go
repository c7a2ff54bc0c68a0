package sequencer

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
)

// Builder turns one DesignIntent into an ordered operation list.
type Builder struct {
	validate *validator.Validate
	counter  atomic.Uint64
}

// NewBuilder creates a sequence builder.
func NewBuilder() *Builder {
	return &Builder{
		validate: validator.New(),
	}
}

// BuildSequence emits exactly one CREATE operation for the base geometry
// and one FEATURE operation per feature in input order. Each feature
// depends only on the CREATE; the execution boundary applies features
// sequentially against the evolving handle. When manufacturability
// directives are present, one ANALYZE operation depending on the last
// emitted operation is appended.
func (b *Builder) BuildSequence(di *DesignIntent) ([]Operation, error) {
	if di == nil {
		return nil, fmt.Errorf("design intent is nil")
	}
	if err := b.validate.Struct(di); err != nil {
		return nil, fmt.Errorf("invalid design intent: %w", err)
	}

	ops := make([]Operation, 0, len(di.Features)+2)

	baseParams := cloneParams(di.BaseGeometry.Parameters)
	if di.BaseGeometry.Position != nil {
		baseParams["position"] = *di.BaseGeometry.Position
	}

	baseID := b.nextID()
	ops = append(ops, Operation{
		ID:          baseID,
		Category:    CategoryCreate,
		Operation:   "CREATE_" + strings.ToUpper(di.BaseGeometry.Type),
		Parameters:  baseParams,
		DependsOn:   []string{},
		Streaming:   true,
		Description: fmt.Sprintf("Create base %s", di.BaseGeometry.Type),
		EstimatedMS: 500,
	})

	for _, feature := range di.Features {
		desc := feature.Description
		if desc == "" {
			desc = fmt.Sprintf("Add %s %q", feature.Type, feature.Name)
		}
		ops = append(ops, Operation{
			ID:          b.nextID(),
			Category:    CategoryFeature,
			Operation:   "ADD_" + strings.ToUpper(feature.Type),
			Parameters:  cloneParams(feature.Parameters),
			DependsOn:   []string{baseID},
			Streaming:   true,
			Description: desc,
			EstimatedMS: 300,
		})
	}

	if len(di.Manufacturability) > 0 {
		ops = append(ops, Operation{
			ID:          b.nextID(),
			Category:    CategoryAnalyze,
			Operation:   "ANALYZE_MANUFACTURABILITY",
			Parameters:  cloneParams(di.Manufacturability),
			DependsOn:   []string{ops[len(ops)-1].ID},
			Description: "Analyze manufacturability",
			EstimatedMS: 1000,
		})
	}

	return ops, nil
}

// nextID generates an operation id from wall-clock time and a monotonic
// counter. Not content-derived.
func (b *Builder) nextID() string {
	return fmt.Sprintf("op_%d_%d", time.Now().UnixMilli(), b.counter.Add(1))
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
