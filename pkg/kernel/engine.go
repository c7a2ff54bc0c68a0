package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qutlas/designcore/pkg/intent"
	"github.com/qutlas/designcore/pkg/kernel/protocol"
	"github.com/qutlas/designcore/pkg/sequencer"
	"github.com/qutlas/designcore/pkg/telemetry"
)

// EngineState is the lifecycle state of the execution engine.
type EngineState string

const (
	EngineUnstarted     EngineState = "unstarted"
	EngineInitializing  EngineState = "initializing"
	EngineReady         EngineState = "ready"
	EngineFallbackReady EngineState = "fallback_ready"
	EngineExecuting     EngineState = "executing"
	EngineClosed        EngineState = "closed"
)

// Progress statuses emitted per operation.
const (
	ProgressRunning  = "running"
	ProgressComplete = "complete"
	ProgressError    = "error"
)

// ProgressEvent reports the state of one operation during a sequence.
type ProgressEvent struct {
	OperationID string
	Operation   string
	Status      string
	Message     string
	Index       int
	Total       int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)

// MeshUpdateFunc receives mesh updates as operations complete. May be nil.
type MeshUpdateFunc func(operationID, geometryID string, mesh *intent.Mesh)

// SequenceResult is the outcome of draining one operation list. On a
// partial failure Completed counts the operations that succeeded,
// LastGeometryID is the last good geometry handle, and Err carries the
// failure that aborted the rest.
type SequenceResult struct {
	Completed      int
	LastGeometryID string
	Err            error
}

// EngineConfig configures an Engine. Zero values take defaults.
type EngineConfig struct {
	Transport    Transport
	ReadyTimeout time.Duration
	OpTimeout    time.Duration
	Subdivisions int
	Logger       zerolog.Logger
	Metrics      *telemetry.Metrics
	Tracer       *telemetry.Tracer
}

// Engine drives ordered operation lists through the evaluator boundary.
// Readiness is an idempotent gate: if the evaluator does not signal
// ready within the timeout the engine permanently enters FallbackReady
// and thereafter serves only the operations it can approximate locally.
// A single instance serializes execution; ExecuteSequence must not be
// invoked concurrently with itself.
type Engine struct {
	cfg     EngineConfig
	log     zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	mu       sync.Mutex
	state    EngineState
	initDone chan struct{}
	conn     *Conn

	// handles maps operation ids and geometry ids to geometry handles so
	// later operations, in this sequence or a future one, can reference
	// earlier results.
	handles map[string]string

	executing bool
}

// NewEngine creates an unstarted engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.Subdivisions == 0 {
		cfg.Subdivisions = DefaultSubdivisions
	}
	return &Engine{
		cfg:     cfg,
		log:     telemetry.ComponentLogger(cfg.Logger, "engine"),
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		state:   EngineUnstarted,
		handles: make(map[string]string),
	}
}

// State returns the current engine state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executing {
		return EngineExecuting
	}
	return e.state
}

// EnsureReady brings the engine to Ready or FallbackReady. It is
// idempotent; concurrent calls share one in-flight attempt. Once the
// engine has fallen back it stays there for its remaining lifetime.
func (e *Engine) EnsureReady(ctx context.Context) EngineState {
	e.mu.Lock()
	switch e.state {
	case EngineReady, EngineFallbackReady, EngineClosed:
		state := e.state
		e.mu.Unlock()
		return state

	case EngineInitializing:
		done := e.initDone
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		e.mu.Lock()
		state := e.state
		e.mu.Unlock()
		return state
	}

	e.state = EngineInitializing
	e.initDone = make(chan struct{})
	done := e.initDone
	e.mu.Unlock()

	state, conn := e.connect(ctx)

	e.mu.Lock()
	e.state = state
	e.conn = conn
	close(done)
	e.mu.Unlock()

	return state
}

func (e *Engine) connect(ctx context.Context) (EngineState, *Conn) {
	if e.cfg.Transport == nil {
		e.log.Warn().Msg("no evaluator transport configured, entering fallback")
		e.metrics.RecordFallbackActivation()
		return EngineFallbackReady, nil
	}

	conn, err := Dial(ctx, e.cfg.Transport, e.log)
	if err != nil {
		e.log.Warn().Err(err).Msg("evaluator unreachable, entering fallback")
		e.metrics.RecordFallbackActivation()
		return EngineFallbackReady, nil
	}

	ready, err := conn.WaitReady(ctx, e.cfg.ReadyTimeout)
	if err != nil {
		e.log.Warn().Err(err).Msg("evaluator readiness timed out, entering fallback")
		e.metrics.RecordFallbackActivation()
		_ = conn.Close()
		return EngineFallbackReady, nil
	}

	e.log.Info().Str("version", ready.Version).Msg("evaluator ready")
	return EngineReady, conn
}

// ExecuteSequence drains an already ordered operation list strictly in
// order, one round trip at a time. Per operation it emits a running
// progress event, performs the operation over the boundary or via local
// fallback, then emits complete or error. The sequence aborts on the
// first error; earlier results stand and remain visible through the
// mesh updates already fired. The returned result carries the last good
// geometry handle alongside any abort error.
func (e *Engine) ExecuteSequence(ctx context.Context, ops []sequencer.Operation, onProgress ProgressFunc, onMesh MeshUpdateFunc) (*SequenceResult, error) {
	state := e.EnsureReady(ctx)
	if state == EngineClosed {
		return nil, NewBoundaryError("engine is closed", nil).WithCode(ErrCodeClosed)
	}

	e.mu.Lock()
	if e.executing {
		e.mu.Unlock()
		return nil, NewInternalError("sequence already executing", nil).WithCode(ErrCodeBusy)
	}
	e.executing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.executing = false
		e.mu.Unlock()
	}()

	ctx, span := e.tracer.StartSequenceSpan(ctx, len(ops))
	defer span.End()

	result := &SequenceResult{}
	total := len(ops)

	for i := range ops {
		op := &ops[i]

		emit(onProgress, ProgressEvent{
			OperationID: op.ID,
			Operation:   op.Operation,
			Status:      ProgressRunning,
			Index:       i,
			Total:       total,
		})

		geometryID, mesh, err := e.perform(ctx, op, state)
		if err != nil {
			e.metrics.RecordSequenceOp(string(op.Category), "error")
			e.log.Warn().Err(err).Str("operation", op.ID).Msg("sequence aborted")
			emit(onProgress, ProgressEvent{
				OperationID: op.ID,
				Operation:   op.Operation,
				Status:      ProgressError,
				Message:     err.Error(),
				Index:       i,
				Total:       total,
			})
			result.Err = err
			telemetry.RecordError(span, err)
			return result, nil
		}

		if geometryID != "" {
			e.mu.Lock()
			e.handles[op.ID] = geometryID
			e.handles[geometryID] = geometryID
			e.mu.Unlock()
			result.LastGeometryID = geometryID
		}
		if mesh != nil && onMesh != nil {
			onMesh(op.ID, geometryID, mesh)
		}

		e.metrics.RecordSequenceOp(string(op.Category), "complete")
		result.Completed++
		emit(onProgress, ProgressEvent{
			OperationID: op.ID,
			Operation:   op.Operation,
			Status:      ProgressComplete,
			Index:       i,
			Total:       total,
		})
	}

	telemetry.RecordSuccess(span)
	return result, nil
}

// perform executes one operation over the boundary or locally.
func (e *Engine) perform(ctx context.Context, op *sequencer.Operation, state EngineState) (string, *intent.Mesh, error) {
	if state == EngineFallbackReady {
		return e.performFallback(op)
	}

	req := &protocol.Request{
		ID:      uuid.NewString(),
		Op:      op.Operation,
		Timeout: int(e.cfg.OpTimeout.Seconds()),
	}
	if len(op.Parameters) > 0 {
		payload, err := json.Marshal(op.Parameters)
		if err != nil {
			return "", nil, NewValidationError(
				fmt.Sprintf("failed to encode parameters for %s", op.ID), err,
			).WithOperation(op.Operation)
		}
		req.Payload = payload
	}

	e.mu.Lock()
	if len(op.DependsOn) > 0 {
		req.Target = e.handles[op.DependsOn[0]]
	}
	if len(op.DependsOn) > 1 {
		req.Operand = e.handles[op.DependsOn[1]]
	}
	conn := e.conn
	e.mu.Unlock()

	// Close during a running sequence tears the connection down between
	// operations; the remaining operations must fail, not crash.
	if conn == nil {
		return "", nil, NewBoundaryError("engine is closed", nil).WithCode(ErrCodeClosed)
	}

	start := time.Now()
	res, err := conn.RoundTrip(ctx, req, e.cfg.OpTimeout)
	e.metrics.ObserveBoundaryRoundTrip(time.Since(start))
	if err != nil {
		if isTimeout(err) {
			e.metrics.RecordBoundaryTimeout()
		}
		return "", nil, err
	}
	return res.GeometryID, res.Mesh, nil
}

// performFallback approximates a create operation locally. Operations
// with no local equivalent fail with a descriptive error.
func (e *Engine) performFallback(op *sequencer.Operation) (string, *intent.Mesh, error) {
	mesh, err := FallbackMesh(op.Operation, op.Parameters, e.cfg.Subdivisions)
	if err != nil {
		return "", nil, err
	}
	e.metrics.RecordFallbackActivation()
	return "local_" + uuid.NewString(), mesh, nil
}

// GeometryHandle returns the cached geometry handle for an operation or
// geometry id from an earlier execution.
func (e *Engine) GeometryHandle(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	handle, ok := e.handles[id]
	return handle, ok
}

// ClearHandles drops the cached geometry handles.
func (e *Engine) ClearHandles() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles = make(map[string]string)
}

// Close terminates the boundary connection and abandons pending work.
func (e *Engine) Close() error {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.state = EngineClosed
	e.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func emit(fn ProgressFunc, ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
