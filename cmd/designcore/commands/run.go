package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qutlas/designcore/pkg/intent"
	"github.com/qutlas/designcore/pkg/kernel"
	"github.com/qutlas/designcore/pkg/stores"
	"github.com/qutlas/designcore/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var part string

	cmd := &cobra.Command{
		Use:   "run <intent.json>",
		Short: "Execute a design intent against the geometry evaluator",
		Long: `Build the operation sequence for a design intent and drive it through
the evaluator boundary, streaming progress to stderr.

If no evaluator command is configured, or the evaluator does not signal
readiness in time, the engine serves create operations from local
fallback geometry and rejects operations with no local approximation.

Each run and its per-operation events are recorded in the local SQLite
store for later inspection.`,
		Example: `  # Run against the configured evaluator
  designcore run intent.json --config designcore.yaml

  # Run on local fallback geometry (no evaluator configured)
  designcore run intent.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ops, issues, err := buildSequence(args[0])
			if err != nil {
				return err
			}
			for _, issue := range issues {
				log.Warn().
					Str("kind", string(issue.Kind)).
					Str("operation", issue.OperationID).
					Msg(issue.Message)
			}

			store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Store.Path})
			if err != nil {
				return err
			}
			if err := store.Init(cmd.Context()); err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer store.Close()

			metrics := telemetry.NewMetrics(cfg.Telemetry.Metrics)

			tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing, rootVersion)
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			defer func() {
				if err := tracer.Shutdown(context.Background()); err != nil {
					log.Warn().Err(err).Msg("Failed to flush traces")
				}
			}()

			var transport kernel.Transport
			if len(cfg.Evaluator.Command) > 0 {
				transport = kernel.NewExecTransport(cfg.Evaluator.Command)
			} else {
				log.Info().Msg("No evaluator configured, running on local fallback geometry")
			}

			engine := kernel.NewEngine(kernel.EngineConfig{
				Transport:    transport,
				ReadyTimeout: cfg.Evaluator.ReadyTimeout.Std(),
				OpTimeout:    cfg.Evaluator.OpTimeout.Std(),
				Subdivisions: cfg.Subdivisions,
				Logger:       log.Logger,
				Metrics:      metrics,
				Tracer:       tracer,
			})
			defer engine.Close()

			intentHash := ""
			if content, err := os.ReadFile(args[0]); err == nil {
				intentHash = intent.HashJSON(content)
			}

			ctx := cmd.Context()
			run := &stores.Run{
				ID:         uuid.NewString(),
				Part:       part,
				IntentHash: intentHash,
				Status:     stores.RunStatusRunning,
			}
			if err := store.CreateRun(ctx, run); err != nil {
				return err
			}

			onProgress := func(ev kernel.ProgressEvent) {
				fmt.Fprintf(os.Stderr, "[%d/%d] %-8s %s %s\n", ev.Index+1, ev.Total, ev.Status, ev.OperationID, ev.Message)
				event := &stores.RunEvent{
					RunID:       run.ID,
					OperationID: ev.OperationID,
					Status:      ev.Status,
					Message:     ev.Message,
				}
				if err := store.AppendEvent(ctx, event); err != nil {
					log.Warn().Err(err).Msg("Failed to record run event")
				}
			}
			onMesh := func(opID, geoID string, mesh *intent.Mesh) {
				log.Debug().
					Str("operation", opID).
					Str("geometry", geoID).
					Int("vertices", mesh.VertexCount()).
					Int("triangles", mesh.TriangleCount()).
					Msg("Mesh updated")
			}

			result, err := engine.ExecuteSequence(ctx, ops, onProgress, onMesh)
			if err != nil {
				recordRunFailure(store, run.ID, err)
				return err
			}

			if result.Err != nil {
				recordRunFailure(store, run.ID, result.Err)
				log.Error().
					Err(result.Err).
					Int("completed", result.Completed).
					Str("last_geometry", result.LastGeometryID).
					Msg("Sequence aborted")
				return fmt.Errorf("sequence failed after %d operations: %w", result.Completed, result.Err)
			}

			if err := store.UpdateRunStatus(ctx, run.ID, stores.RunStatusCompleted, nil); err != nil {
				log.Warn().Err(err).Msg("Failed to record run completion")
			}
			log.Info().
				Int("completed", result.Completed).
				Str("last_geometry", result.LastGeometryID).
				Str("run_id", run.ID).
				Msg("Sequence completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&part, "part", "unnamed", "part name recorded with the run")
	return cmd
}

func recordRunFailure(store *stores.SQLiteStore, runID string, cause error) {
	msg := cause.Error()
	if err := store.UpdateRunStatus(context.Background(), runID, stores.RunStatusFailed, &msg); err != nil {
		log.Warn().Err(err).Msg("Failed to record run failure")
	}
}
