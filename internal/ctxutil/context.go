// Package ctxutil builds request contexts carrying a trace id.
package ctxutil

import (
	"context"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/trace"
)

// ContextOption configures NewContext. Options compose.
type ContextOption func(*ctxConfig)

type ctxConfig struct {
	withTrace bool
	nodeID    domain.Identifier
	timeout   time.Duration
}

// WithTrace attaches a trace id derived from nodeID.
func WithTrace(nodeID domain.Identifier) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withTrace = true
		cfg.nodeID = nodeID
	}
}

// WithTimeout bounds the created context with d. The caller must
// defer the returned cancel func.
func WithTimeout(d time.Duration) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.timeout = d
	}
}

// NewContext builds a context.Background()-rooted context configured
// by opts, returning it alongside a cancel func (nil if no timeout was
// requested).
func NewContext(opts ...ContextOption) (context.Context, context.CancelFunc) {
	cfg := &ctxConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		ctx = context.Background()
	}
	if cfg.withTrace {
		ctx, _ = trace.AttachTraceID(ctx, cfg.nodeID)
	}
	return ctx, cancel
}

// TraceIDFromContext returns ctx's trace id, or "" if none is set.
func TraceIDFromContext(ctx context.Context) string {
	return trace.GetTraceID(ctx)
}

// EnsureTraceID attaches a fresh trace id rooted at nodeID if ctx does
// not already carry one.
func EnsureTraceID(ctx context.Context, nodeID domain.Identifier) context.Context {
	if id := trace.GetTraceID(ctx); id == "" {
		ctx, _ = trace.AttachTraceID(ctx, nodeID)
	}
	return ctx
}

