package pkgrouter

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// middlewareRecoverer turns a handler panic into a 500 and logs the frames
// that belong to this module.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel compared by identity
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "panic on the server",
				"because", rvr,
				"route", routePath(r),
				"stack", internalFrames(debug.Stack()),
			)

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// internalFrames keeps the file:line entries under /internal/ from a
// goroutine stack, trimmed to a path relative to the module root.
func internalFrames(stack []byte) []string {
	var frames []string
	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, "/internal/")
		if idx == -1 || !strings.Contains(line, ".go:") {
			continue
		}
		frame := line[idx+1:]
		if sp := strings.IndexByte(frame, ' '); sp != -1 {
			frame = frame[:sp]
		}
		frames = append(frames, frame)
	}
	return frames
}
