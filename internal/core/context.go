package core

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "import_client_ip"
	ctxKeyUserAgent contextKey = "import_user_agent"
)

// ContextWithClientIP attaches the caller's address, stored with the run history.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ContextWithUserAgent attaches the caller's User-Agent.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
