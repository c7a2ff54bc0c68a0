package commands

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qutlas/designcore/pkg/compiler"
	"github.com/qutlas/designcore/pkg/history"
	"github.com/qutlas/designcore/pkg/workspace"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <workspace>",
		Short: "Recompile a workspace whenever it changes",
		Long: `Watch a workspace file and recompile it on every change, logging hash
transitions. Each distinct IR is pushed onto a bounded history stack so
the session records how the design evolved.

Unchanged content (a save without edits) produces the same hash and is
not pushed again.`,
		Example: `  # Watch a workspace during editing
  designcore watch bracket.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			loader := workspace.NewLoader()
			stack := history.New()

			compile := func() {
				ws, err := loader.Load(path)
				if err != nil {
					log.Warn().Err(err).Msg("Workspace failed to load, keeping last good IR")
					return
				}
				ir := compiler.CompileWorkspace(ws.Part, ws.Objects)

				if current := stack.Current(); current != nil && current.Hash == ir.Hash {
					log.Debug().Str("hash", ir.Hash).Msg("Content unchanged")
					return
				}

				prev := ""
				if current := stack.Current(); current != nil {
					prev = current.Hash
				}
				stack.Push(ir)
				log.Info().
					Str("part", ir.Part).
					Str("from", prev).
					Str("to", ir.Hash).
					Int("history_depth", stack.Len()).
					Msg("Workspace recompiled")
			}

			// Initial compile before watching.
			compile()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch the directory: editors typically replace files on
			// save, which drops a watch on the file itself.
			dir := filepath.Dir(path)
			if err := watcher.Add(dir); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("Watching workspace")

			target, err := filepath.Abs(path)
			if err != nil {
				return err
			}

			for {
				select {
				case <-cmd.Context().Done():
					log.Info().Msg("Watch stopped")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					abs, err := filepath.Abs(event.Name)
					if err != nil || abs != target {
						continue
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
						compile()
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	return cmd
}
