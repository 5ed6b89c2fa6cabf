package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/FlavienRemy/csv-merger/internal/merger"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.merger.enabled") {
		closer, err := merger.New(merger.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			RunID:     a.runID,
		})
		if err != nil {
			slog.Error("failed to init module merger", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Merger"] = closer
		}
	}
}
