package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// debounceWindow coalesces the write bursts editors produce when saving.
const debounceWindow = 300 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-parse workbook and flow files as they change",
		Long: `Watch a directory and re-parse any .twb or .tfl file that is created or
modified, writing fresh metadata and updating the registry. Runs until
interrupted.`,
		Example: `  tabmeta watch dashboards/`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(args[0]); err != nil {
				return fmt.Errorf("watching %s: %w", args[0], err)
			}
			cc.Renderer.Printf("watching %s\n", args[0])

			pending := map[string]time.Time{}
			ticker := time.NewTicker(debounceWindow)
			defer ticker.Stop()

			for {
				select {
				case <-cmd.Context().Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
						continue
					}
					ext := strings.ToLower(filepath.Ext(event.Name))
					if ext != ".twb" && ext != ".tfl" {
						continue
					}
					pending[event.Name] = time.Now()

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					cc.Logger.Warn("watch error", "error", err)

				case now := <-ticker.C:
					for path, stamp := range pending {
						if now.Sub(stamp) < debounceWindow {
							continue
						}
						delete(pending, path)

						name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
						doc, artifact, err := cc.Engine.ParseTo(cmd.Context(), path, name, cc.Cfg.MetadataDir)
						if err != nil {
							cc.Renderer.Errorf("error: %s: %v\n", path, err)
							continue
						}
						if err := registerArtifact(cc, doc, path, artifact); err != nil {
							cc.Renderer.Errorf("error: registering %s: %v\n", name, err)
							continue
						}
						reportDiagnostics(cc.Renderer, name, doc.Diagnostics)
						cc.Renderer.Printf("re-parsed %s -> %s\n", name, artifact)
					}
				}
			}
		},
	}
}
