package pkgrouter

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// GetParam returns the path parameter key, or "" outside a routed request.
func GetParam(ctx context.Context, key string) string {
	return httprouter.ParamsFromContext(ctx).ByName(key)
}

// routePath returns the registered pattern (e.g. /workspaces/:id) so logs
// group requests by endpoint rather than by workspace.
func routePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}
