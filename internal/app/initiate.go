package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgconfig"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgrouter"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgroutine"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkguid"
)

func (a *App) initConfig() {
	path := "/config/config.yaml"
	if os.Getenv("LOCAL") == "true" {
		path = "./config/config.yaml"
	}
	if p := os.Getenv("CSVMERGER_CONFIG"); p != "" {
		path = p
	}

	cfg, err := pkgconfig.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("tz"))

	if raw := cfg.GetString("log.level"); raw != "" {
		pkglog.InitLoggingWithWriter(os.Stdout, pkglog.ParseLevel(raw))
	}

	a.config = cfg
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(int(a.config.GetInt("goroutine.max")))
	a.uuid = pkguid.NewUUID()

	node := pkguid.RandomNode
	if a.config.GetString("snowflake.node") != "" {
		node = a.config.GetInt("snowflake.node")
	}
	runID, err := pkguid.NewSnowflakeNode(node)
	if err != nil {
		slog.Error("failed to init snowflake", "error", err)
		os.Exit(1)
	}
	a.runID = runID
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	origins := a.config.GetArray("server.cors.allowed_origins")
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{pkgrouter.HeaderCorrelationID, "Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(origins),
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

//nolint:unparam // is always nil
func (a *App) initClosers() {
	if a.closerFn == nil {
		a.closerFn = map[string]func(context.Context) error{}
	}

	a.closerFn["HTTP Server"] = func(ctx context.Context) error {
		return a.httpServer.Shutdown(ctx)
	}
	a.closerFn["Config"] = func(context.Context) error {
		return a.config.Close()
	}
}
