package pkglog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Service is attached to every record as the "service" attribute.
const Service = "csv-merger"

// InitLogging configures the default slog logger for the server.
//
// The logger writes JSON to stdout and normalizes a few common fields to make
// logs easier to query (for example, "ts" and "severity").
func InitLogging() {
	InitLoggingWithWriter(os.Stdout, slog.LevelInfo)
}

// InitLoggingWithWriter is InitLogging with a chosen destination and level.
// The command line tool logs to stderr so stdout stays free for CSV output.
func InitLoggingWithWriter(w io.Writer, level slog.Leveler) {
	slog.SetDefault(NewLogger(w, level))
}

// NewLogger builds the application logger without installing it.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	})

	return slog.New(&contextHandler{Handler: jsonHandler})
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			if strings.Contains(src.File, "/internal/") {
				relPath := filepath.Join("internal", strings.SplitAfter(src.File, "/internal/")[1])
				return slog.Attr{
					Key:   "file",
					Value: slog.StringValue(fmt.Sprintf("%s:%d", relPath, src.Line)),
				}
			}
			return slog.Attr{}
		}
	}
	return a
}

// ParseLevel maps debug, info, warn and error to a slog level. Anything else is info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" && cID != NoCorrelationID {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", Service))

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
