package audit

import (
	"context"
	"strings"
)

// RequestInfo is the provenance every audit event must carry: who acted, from
// where, against which path. The HTTP pipeline attaches it at the top of each
// request; the recorder refuses to write events without IP and path.
type RequestInfo struct {
	RequestID string
	UserID    string
	IP        string
	Path      string
}

type requestInfoContextKey struct{}

// WithRequestInfo attaches request provenance to the context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoContextKey{}, &info)
}

// RequestInfoFromContext returns the provenance attached by the pipeline.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	if ctx == nil {
		return RequestInfo{}, false
	}
	v, ok := ctx.Value(requestInfoContextKey{}).(*RequestInfo)
	if !ok || v == nil {
		return RequestInfo{}, false
	}
	return *v, true
}

// SetContextUser records the resolved actor on the provenance already in ctx.
// The pipeline calls this after authentication so later audit writes carry the
// subject id without re-threading the context.
func SetContextUser(ctx context.Context, userID string) {
	v, ok := ctx.Value(requestInfoContextKey{}).(*RequestInfo)
	if !ok || v == nil {
		return
	}
	v.UserID = strings.TrimSpace(userID)
}
