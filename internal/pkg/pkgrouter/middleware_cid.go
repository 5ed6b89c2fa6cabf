package pkgrouter

import (
	"net/http"
	"strings"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
)

// Generator produces correlation IDs for requests that arrive without one.
type Generator interface {
	Generate() string
}

const (
	// HeaderCorrelationID is read from the request and always echoed back.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted as a fallback, as set by most proxies.
	HeaderRequestID = "X-Request-ID"

	maxCIDLen = 128
)

// normalizeCID trims v and rejects anything that is not printable ASCII, so
// a client cannot inject log lines or headers through it.
func normalizeCID(v string) string {
	v = strings.TrimSpace(v)
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return ""
		}
	}
	if len(v) > maxCIDLen {
		v = v[:maxCIDLen]
	}
	return v
}

func middlewareCorrelationID(uid Generator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := normalizeCID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = normalizeCID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" && uid != nil {
				cid = uid.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(pkglog.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
