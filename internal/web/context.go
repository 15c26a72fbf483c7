package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/uniimport/internal/core"
)

// withRequestMetadata stores the caller's address and User-Agent for the run
// history. RemoteAddr was already rewritten by TrustedRealIP.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr)
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
