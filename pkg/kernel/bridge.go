package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qutlas/designcore/pkg/intent"
	"github.com/qutlas/designcore/pkg/kernel/protocol"
	"github.com/qutlas/designcore/pkg/telemetry"
)

// BridgeState is the lifecycle state of the kernel bridge.
type BridgeState string

const (
	BridgeUninitialized BridgeState = "uninitialized"
	BridgeInitializing  BridgeState = "initializing"
	BridgeReady         BridgeState = "ready"
	BridgeFallback      BridgeState = "fallback"
)

// Default timeouts for the evaluator boundary.
const (
	DefaultReadyTimeout = 10 * time.Second
	DefaultOpTimeout    = 30 * time.Second

	validationCacheTTL = 5 * time.Minute
)

// Boundary operation names understood by the evaluator.
const (
	opCompileIntent   = "COMPILE_INTENT"
	opCompileSemantic = "COMPILE_SEMANTIC_IR"
	opValidate        = "VALIDATE_SEMANTIC_IR"
	opGraphStats      = "GRAPH_STATS"
	opCacheStats      = "CACHE_STATS"
	opSetSubdivisions = "SET_SUBDIVISIONS"
	opClearCaches     = "CLEAR_CACHES"
)

// ValidationResult is the outcome of validating a semantic intent graph.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// GraphStats describes the evaluator's intent graph.
type GraphStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// CacheStats describes cache occupancy on both sides of the boundary.
type CacheStats struct {
	MeshEntries       int `json:"mesh_entries"`
	ValidationEntries int `json:"validation_entries"`
	KernelEntries     int `json:"kernel_entries"`
}

// BridgeConfig configures a Bridge. Zero values take defaults.
type BridgeConfig struct {
	Transport    Transport
	ReadyTimeout time.Duration
	OpTimeout    time.Duration
	Subdivisions int
	Logger       zerolog.Logger
	Metrics      *telemetry.Metrics
	Tracer       *telemetry.Tracer

	// Now overrides the clock for validation cache expiry. Used in tests.
	Now func() time.Time
}

// Bridge is the narrow-waist facade to the external geometry evaluator
// for compile and validate calls. Initialize always resolves to Ready or
// Fallback; it never fails. All caches are owned by this instance.
type Bridge struct {
	cfg     BridgeConfig
	log     zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	now     func() time.Time

	mu       sync.Mutex
	state    BridgeState
	initDone chan struct{}
	conn     *Conn
	version  string

	subdivisions int
	meshCache    map[string]*intent.KernelResult
	validCache   map[string]validationEntry
}

type validationEntry struct {
	result  ValidationResult
	expires time.Time
}

// NewBridge creates an uninitialized bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.Subdivisions == 0 {
		cfg.Subdivisions = DefaultSubdivisions
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Bridge{
		cfg:          cfg,
		log:          telemetry.ComponentLogger(cfg.Logger, "bridge"),
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
		now:          now,
		state:        BridgeUninitialized,
		subdivisions: ClampSubdivisions(cfg.Subdivisions),
		meshCache:    make(map[string]*intent.KernelResult),
		validCache:   make(map[string]validationEntry),
	}
}

// State returns the current bridge state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize brings the bridge to Ready or Fallback. It is idempotent and
// concurrent calls share one in-flight attempt. It never returns an error:
// an unreachable evaluator resolves to Fallback.
func (b *Bridge) Initialize(ctx context.Context) BridgeState {
	b.mu.Lock()
	switch b.state {
	case BridgeReady, BridgeFallback:
		state := b.state
		b.mu.Unlock()
		return state

	case BridgeInitializing:
		done := b.initDone
		b.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return b.State()
	}

	b.state = BridgeInitializing
	b.initDone = make(chan struct{})
	done := b.initDone
	b.mu.Unlock()

	state, conn, version := b.connect(ctx)

	b.mu.Lock()
	b.state = state
	b.conn = conn
	b.version = version
	close(done)
	b.mu.Unlock()

	return state
}

// connect dials the evaluator and waits for its readiness signal.
func (b *Bridge) connect(ctx context.Context) (BridgeState, *Conn, string) {
	if b.cfg.Transport == nil {
		b.log.Warn().Msg("no evaluator transport configured, entering fallback")
		b.metrics.RecordFallbackActivation()
		return BridgeFallback, nil, ""
	}

	conn, err := Dial(ctx, b.cfg.Transport, b.log)
	if err != nil {
		b.log.Warn().Err(err).Msg("evaluator unreachable, entering fallback")
		b.metrics.RecordFallbackActivation()
		return BridgeFallback, nil, ""
	}

	ready, err := conn.WaitReady(ctx, b.cfg.ReadyTimeout)
	if err != nil {
		b.log.Warn().Err(err).Msg("evaluator readiness timed out, entering fallback")
		b.metrics.RecordFallbackActivation()
		_ = conn.Close()
		return BridgeFallback, nil, ""
	}

	b.log.Info().Str("version", ready.Version).Msg("evaluator ready")
	return BridgeReady, conn, ready.Version
}

// compileResponse is the evaluator's extra compile payload beyond the mesh.
type compileResponse struct {
	Topology *intent.TopologySummary         `json:"topology,omitempty"`
	Step     *intent.StepSummary             `json:"step,omitempty"`
	Report   *intent.ManufacturabilityReport `json:"report,omitempty"`
}

// CompileIntent compiles a geometry IR into mesh and manufacturing
// results. The returned status is compiled, cached, fallback, or error;
// for compiled/cached/error the result's IntentHash equals the input
// IR's hash so callers can detect stale responses. Fallback carries a
// nil mesh. CompileIntent itself never fails; failures surface as an
// error-status result.
func (b *Bridge) CompileIntent(ctx context.Context, ir *intent.GeometryIR) *intent.KernelResult {
	if ir == nil {
		return &intent.KernelResult{
			Status: intent.StatusError,
			Error:  "nil geometry ir",
		}
	}

	ctx, span := b.tracer.StartCompileSpan(ctx, ir.Part)
	defer span.End()

	result := b.compileIntent(ctx, ir)
	span.SetAttributes(
		telemetry.AttrIntentHash.String(result.IntentHash),
		telemetry.AttrStatus.String(string(result.Status)),
	)
	if result.Status == intent.StatusError {
		telemetry.RecordError(span, errors.New(result.Error))
	} else {
		telemetry.RecordSuccess(span)
	}
	return result
}

func (b *Bridge) compileIntent(ctx context.Context, ir *intent.GeometryIR) *intent.KernelResult {
	hash := ir.Hash
	if hash == "" {
		hash = intent.HashIR(ir)
	}

	b.Initialize(ctx)

	b.mu.Lock()
	if cached, ok := b.meshCache[hash]; ok {
		b.mu.Unlock()
		b.metrics.RecordCacheHit("mesh")
		b.metrics.RecordCompile(string(intent.StatusCached))
		out := *cached
		out.Status = intent.StatusCached
		return &out
	}
	state := b.state
	conn := b.conn
	b.mu.Unlock()

	if state != BridgeReady {
		b.metrics.RecordCompile(string(intent.StatusFallback))
		return &intent.KernelResult{
			Status:     intent.StatusFallback,
			IntentHash: hash,
		}
	}

	payload, err := json.Marshal(ir)
	if err != nil {
		b.metrics.RecordCompile(string(intent.StatusError))
		return &intent.KernelResult{
			Status:     intent.StatusError,
			IntentHash: hash,
			Error:      fmt.Sprintf("failed to encode ir: %v", err),
		}
	}

	res, err := b.roundTrip(ctx, conn, opCompileIntent, payload)
	if err != nil {
		b.metrics.RecordCompile(string(intent.StatusError))
		return &intent.KernelResult{
			Status:     intent.StatusError,
			IntentHash: hash,
			Error:      err.Error(),
		}
	}

	result := &intent.KernelResult{
		Status:     intent.StatusCompiled,
		IntentHash: hash,
		Mesh:       res.Mesh,
	}
	if len(res.Raw) > 0 {
		var extra compileResponse
		if err := json.Unmarshal(res.Raw, &extra); err == nil {
			result.Topology = extra.Topology
			result.Step = extra.Step
			result.Report = extra.Report
		}
	}

	b.mu.Lock()
	b.meshCache[hash] = result
	b.mu.Unlock()

	b.metrics.RecordCompile(string(intent.StatusCompiled))
	out := *result
	return &out
}

// CompileSemanticIR compiles a richer semantic intent graph, including
// manufacturing analysis in the result. The graph is hashed by its
// canonical serialization for caching and staleness detection.
func (b *Bridge) CompileSemanticIR(ctx context.Context, graph json.RawMessage) *intent.KernelResult {
	hash := intent.HashJSON(graph)

	b.Initialize(ctx)

	b.mu.Lock()
	if cached, ok := b.meshCache[hash]; ok {
		b.mu.Unlock()
		b.metrics.RecordCacheHit("mesh")
		b.metrics.RecordCompile(string(intent.StatusCached))
		out := *cached
		out.Status = intent.StatusCached
		return &out
	}
	state := b.state
	conn := b.conn
	b.mu.Unlock()

	if state != BridgeReady {
		b.metrics.RecordCompile(string(intent.StatusFallback))
		return &intent.KernelResult{
			Status:     intent.StatusFallback,
			IntentHash: hash,
		}
	}

	res, err := b.roundTrip(ctx, conn, opCompileSemantic, graph)
	if err != nil {
		b.metrics.RecordCompile(string(intent.StatusError))
		return &intent.KernelResult{
			Status:     intent.StatusError,
			IntentHash: hash,
			Error:      err.Error(),
		}
	}

	result := &intent.KernelResult{
		Status:     intent.StatusCompiled,
		IntentHash: hash,
		Mesh:       res.Mesh,
	}
	if len(res.Raw) > 0 {
		var extra compileResponse
		if err := json.Unmarshal(res.Raw, &extra); err == nil {
			result.Topology = extra.Topology
			result.Step = extra.Step
			result.Report = extra.Report
		}
	}

	b.mu.Lock()
	b.meshCache[hash] = result
	b.mu.Unlock()

	b.metrics.RecordCompile(string(intent.StatusCompiled))
	out := *result
	return &out
}

// ValidateSemanticIR validates a semantic intent graph. Results are
// cached by the canonical serialization of the input for five minutes
// so unchanged input skips the evaluator round trip.
func (b *Bridge) ValidateSemanticIR(ctx context.Context, graph json.RawMessage) ValidationResult {
	key := intent.HashJSON(graph)

	b.mu.Lock()
	if entry, ok := b.validCache[key]; ok {
		if b.now().Before(entry.expires) {
			b.mu.Unlock()
			b.metrics.RecordCacheHit("validation")
			return entry.result
		}
		delete(b.validCache, key)
	}
	b.mu.Unlock()

	b.Initialize(ctx)

	b.mu.Lock()
	state := b.state
	conn := b.conn
	b.mu.Unlock()

	var result ValidationResult
	if state != BridgeReady {
		// Without the evaluator there is nothing to check against; the
		// graph is accepted structurally.
		result = ValidationResult{Valid: true}
	} else {
		res, err := b.roundTrip(ctx, conn, opValidate, graph)
		if err != nil {
			// A boundary failure is not a validation verdict; report it
			// without caching so the next call re-checks the graph.
			return ValidationResult{Valid: false, Issues: []string{err.Error()}}
		}
		if err := protocol.ParseData(res.Raw, &result); err != nil {
			result = ValidationResult{Valid: false, Issues: []string{fmt.Sprintf("malformed validation result: %v", err)}}
		}
	}

	b.mu.Lock()
	b.validCache[key] = validationEntry{result: result, expires: b.now().Add(validationCacheTTL)}
	b.mu.Unlock()

	return result
}

// GraphStats returns the evaluator's intent graph statistics, or zero
// values when the evaluator is unavailable.
func (b *Bridge) GraphStats(ctx context.Context) GraphStats {
	var stats GraphStats
	b.auxRead(ctx, opGraphStats, &stats)
	return stats
}

// CacheStats returns cache occupancy. Local cache sizes are always
// reported; evaluator-side counts are zero when it is unavailable.
func (b *Bridge) CacheStats(ctx context.Context) CacheStats {
	var stats CacheStats
	b.auxRead(ctx, opCacheStats, &stats)

	b.mu.Lock()
	stats.MeshEntries = len(b.meshCache)
	stats.ValidationEntries = len(b.validCache)
	b.mu.Unlock()
	return stats
}

// SetSubdivisions sets the tessellation level for curved primitives and
// returns the clamped effective value. When the evaluator is unavailable
// only the local fallback level changes.
func (b *Bridge) SetSubdivisions(ctx context.Context, n int) int {
	clamped := ClampSubdivisions(n)

	b.mu.Lock()
	b.subdivisions = clamped
	b.mu.Unlock()

	payload, _ := json.Marshal(map[string]int{"subdivisions": clamped})
	var ignored struct{}
	b.auxRead(ctx, opSetSubdivisions, &ignored, payload...)
	return clamped
}

// Subdivisions returns the current tessellation level.
func (b *Bridge) Subdivisions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subdivisions
}

// KernelVersion returns the evaluator's reported version, or the empty
// string when it is unavailable.
func (b *Bridge) KernelVersion(ctx context.Context) string {
	b.Initialize(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// ClearCaches drops this instance's caches and asks the evaluator to
// clear its own memoization.
func (b *Bridge) ClearCaches(ctx context.Context) {
	b.mu.Lock()
	b.meshCache = make(map[string]*intent.KernelResult)
	b.validCache = make(map[string]validationEntry)
	b.mu.Unlock()

	var ignored struct{}
	b.auxRead(ctx, opClearCaches, &ignored)
}

// auxRead performs an auxiliary boundary read, leaving out unchanged on
// any failure so callers observe zero-value defaults.
func (b *Bridge) auxRead(ctx context.Context, op string, out any, payload ...byte) {
	b.Initialize(ctx)

	b.mu.Lock()
	state := b.state
	conn := b.conn
	b.mu.Unlock()

	if state != BridgeReady {
		return
	}

	res, err := b.roundTrip(ctx, conn, op, payload)
	if err != nil {
		b.log.Debug().Err(err).Str("op", op).Msg("auxiliary read failed")
		return
	}
	if len(res.Raw) > 0 {
		if err := protocol.ParseData(res.Raw, out); err != nil {
			b.log.Debug().Err(err).Str("op", op).Msg("malformed auxiliary result")
		}
	}
}

// roundTrip issues one request with the bridge's per-operation timeout.
func (b *Bridge) roundTrip(ctx context.Context, conn *Conn, op string, payload []byte) (*protocol.Result, error) {
	req := &protocol.Request{
		ID:      uuid.NewString(),
		Op:      op,
		Payload: payload,
		Timeout: int(b.cfg.OpTimeout.Seconds()),
	}

	ctx, span := b.tracer.StartBoundarySpan(ctx, op)
	defer span.End()

	start := time.Now()
	res, err := conn.RoundTrip(ctx, req, b.cfg.OpTimeout)
	b.metrics.ObserveBoundaryRoundTrip(time.Since(start))
	if err != nil {
		if isTimeout(err) {
			b.metrics.RecordBoundaryTimeout()
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return res, nil
}

func isTimeout(err error) bool {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Code == ErrCodeTimeout
	}
	return false
}

// Close tears down the boundary connection. The bridge cannot be reused
// afterwards.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.state = BridgeFallback
	b.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
