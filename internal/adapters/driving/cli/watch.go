package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// watchSettle is how long a path must stay quiet before it is re-indexed.
const watchSettle = 300 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep the index in sync with a directory",
	Long: `Index a directory, then follow changes until interrupted. Written and
created files are re-indexed; removed and renamed files are deleted from
the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	docs, err := collectDocuments([]string{root}, nil)
	if err != nil {
		return err
	}
	report, err := indexService.IndexBatch(cmd.Context(), docs)
	printBatchReport(cmd, report)
	if err != nil {
		return err
	}

	w, err := newDirWatcher(indexService, root)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", root)
	w.Run(cmd.Context())
	return nil
}

// dirWatcher mirrors file changes under a directory into the index.
type dirWatcher struct {
	index   driving.IndexService
	watcher *fsnotify.Watcher
	settle  time.Duration

	// pending holds paths waiting to settle, keyed by path.
	pending map[string]struct{}
}

func newDirWatcher(index driving.IndexService, root string) (*dirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &dirWatcher{
		index:   index,
		watcher: watcher,
		settle:  watchSettle,
		pending: make(map[string]struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches root and every non-hidden directory below it.
func (w *dirWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher closes.
func (w *dirWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.record(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// record queues an event. New directories are watched immediately.
func (w *dirWatcher) record(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("Failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}
	if !isIndexable(event.Name) {
		return
	}
	w.pending[event.Name] = struct{}{}
}

// flush applies every queued path to the index.
func (w *dirWatcher) flush(ctx context.Context) {
	for path := range w.pending {
		delete(w.pending, path)
		if err := w.apply(ctx, path); err != nil {
			logger.Warn("Failed to sync %s: %v", path, err)
		}
	}
}

// apply indexes path if it exists and removes it from the index otherwise.
func (w *dirWatcher) apply(ctx context.Context, path string) error {
	doc, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = w.index.DeleteIndex(ctx, path)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err == nil {
			logger.Info("Removed %s", path)
		}
		return err
	}
	if err != nil {
		return err
	}

	if err := w.index.IndexDocument(ctx, doc); err != nil {
		return err
	}
	logger.Info("Indexed %s", path)
	return nil
}

// Close stops watching.
func (w *dirWatcher) Close() error {
	return w.watcher.Close()
}
