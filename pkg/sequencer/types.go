// Package sequencer turns structured, externally parsed design intent into
// dependency-annotated, topologically valid operation lists for the
// execution engine.
//
// Sequencer output is for live, interactive edits: operation ids come from
// a monotonic counter plus wall-clock time and are intentionally
// non-reproducible across runs. Only the compiler's IR is content-addressed.
package sequencer

// Category classifies an operation for dispatch and reporting.
type Category string

const (
	CategoryCreate  Category = "CREATE"
	CategoryModify  Category = "MODIFY"
	CategoryFeature Category = "FEATURE"
	CategoryBoolean Category = "BOOLEAN"
	CategoryAnalyze Category = "ANALYZE"
	CategoryExport  Category = "EXPORT"
)

// Operation is one unit of work for the execution engine.
type Operation struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Operation   string         `json:"operation"`
	Parameters  map[string]any `json:"parameters"`
	DependsOn   []string       `json:"dependsOn"`
	Streaming   bool           `json:"streaming"`
	Description string         `json:"description"`
	EstimatedMS int64          `json:"estimatedMs,omitempty"`
}

// BaseGeometry describes the part's starting solid.
type BaseGeometry struct {
	Type       string         `json:"type" validate:"required"`
	Parameters map[string]any `json:"parameters" validate:"required"`
	Position   *[3]float64    `json:"position,omitempty"`
}

// FeatureSpec describes one feature applied to the base geometry.
type FeatureSpec struct {
	Type        string         `json:"type" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	Parameters  map[string]any `json:"parameters"`
	Description string         `json:"description,omitempty"`
}

// DesignIntent is the contract the natural-language interpreter emits:
// a base geometry, zero or more features in application order, and
// optional manufacturability directives.
type DesignIntent struct {
	BaseGeometry      BaseGeometry   `json:"baseGeometry" validate:"required"`
	Features          []FeatureSpec  `json:"features,omitempty" validate:"dive"`
	Manufacturability map[string]any `json:"manufacturability,omitempty"`
}

// IssueKind classifies a dependency problem found while resolving an
// operation list.
type IssueKind string

const (
	IssueMissingDependency IssueKind = "missing_dependency"
	IssueSelfReference     IssueKind = "self_reference"
	IssueCycle             IssueKind = "cycle"
)

// Issue is a structured dependency problem. Resolution reports issues as
// data; it never fails.
type Issue struct {
	Kind        IssueKind `json:"kind"`
	OperationID string    `json:"operationId"`
	Dependency  string    `json:"dependency,omitempty"`
	Message     string    `json:"message"`
}
