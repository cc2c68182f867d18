package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepview"
)

// startWatch reloads the editor from path on every save and re-executes the
// new source. It stops when ctx is done.
func startWatch(ctx context.Context, wb *stepview.Workbench, path string, logger *slog.Logger) {
	unsubscribe := wb.Editor().OnChange(func(string) {
		go func() {
			if _, err := wb.Execute(ctx); err != nil && !isInterrupted(err) {
				logger.Warn("Re-execution after change failed", "err", err)
			}
		}()
	})

	go func() {
		defer unsubscribe()
		if err := wb.Editor().Watch(ctx, path, 0); err != nil {
			logger.Error("Watcher stopped", "path", path, "err", err)
		}
	}()
}
