package node

import (
	"time"

	"skipgraph/internal/logger"
)

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger attaches a structured logger, named "node".
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		n.lgr = l.Named("node")
	}
}

// WithRequestTimeout overrides the default 30s deadline applied to
// every outbound request awaiting a correlated reply.
func WithRequestTimeout(d time.Duration) Option {
	return func(n *Node) {
		n.requestTimeout = d
	}
}

// WithPingTimeout overrides the default 2s deadline applied to the
// repair loop's liveness probes.
func WithPingTimeout(d time.Duration) Option {
	return func(n *Node) {
		n.pingTimeout = d
	}
}
