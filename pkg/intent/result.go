package intent

// CompileStatus is the outcome classification of one kernel compile call.
type CompileStatus string

const (
	StatusCompiled CompileStatus = "compiled"
	StatusCached   CompileStatus = "cached"
	StatusFallback CompileStatus = "fallback"
	StatusError    CompileStatus = "error"
)

// TopologySummary summarizes the exact B-rep produced by a compile.
type TopologySummary struct {
	VertexCount int `json:"vertexCount"`
	EdgeCount   int `json:"edgeCount"`
	FaceCount   int `json:"faceCount"`
}

// StepSummary summarizes a STEP export produced alongside a compile.
type StepSummary struct {
	EntityCount int `json:"entityCount"`
}

// ViolationSeverity grades a manufacturability finding.
type ViolationSeverity string

const (
	SeverityError   ViolationSeverity = "error"
	SeverityWarning ViolationSeverity = "warning"
	SeverityInfo    ViolationSeverity = "info"
)

// ConstraintViolation is one manufacturability finding against a constraint.
type ConstraintViolation struct {
	Kind     ConstraintKind    `json:"type"`
	Severity ViolationSeverity `json:"severity"`
	Message  string            `json:"message"`
	Value    float64           `json:"value"`
	Limit    float64           `json:"limit"`
}

// ManufacturabilityReport is the kernel's verdict on whether the compiled
// part satisfies its manufacturing constraints.
type ManufacturabilityReport struct {
	Valid      bool                  `json:"valid"`
	Violations []ConstraintViolation `json:"violations"`
	Warnings   []ConstraintViolation `json:"warnings"`
}

// KernelResult is the outcome of one compile call against the boundary.
// For compiled, cached, and error statuses IntentHash equals the input
// IR's hash so callers can detect stale or out-of-order responses.
// A fallback result carries a nil mesh.
type KernelResult struct {
	Status     CompileStatus            `json:"status"`
	IntentHash string                   `json:"intentHash"`
	Mesh       *Mesh                    `json:"mesh,omitempty"`
	Topology   *TopologySummary         `json:"topology,omitempty"`
	Step       *StepSummary             `json:"step,omitempty"`
	Report     *ManufacturabilityReport `json:"mfgReport,omitempty"`
	Error      string                   `json:"error,omitempty"`
}
