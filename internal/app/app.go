// Package app assembles the HTTP service: configuration, shared libraries,
// the router and the merger module.
package app

import (
	"context"
	"net/http"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgconfig"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgrouter"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgroutine"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkguid"
)

type App struct {
	// ctx is canceled on shutdown and bounds every background table load.
	ctx    context.Context
	cancel context.CancelFunc

	config pkgconfig.Config

	uuid      pkguid.StringID
	runID     pkguid.NumberID
	goroutine *pkgroutine.Manager

	router     *pkgrouter.Router
	httpServer *http.Server

	// keyed by resource name for shutdown logging
	closerFn map[string]func(context.Context) error
}

// New builds the application or exits the process when a dependency cannot
// be initialized.
func New() *App {
	pkglog.InitLogging()

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
