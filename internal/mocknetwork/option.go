package mocknetwork

import (
	"math/rand"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
)

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithLogger attaches a structured logger, named "mocknetwork".
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		h.lgr = l.Named("mocknetwork")
	}
}

// WithAsync delivers every Send on its own goroutine rather than
// in-line on the caller's stack.
func WithAsync() Option {
	return func(h *Hub) {
		h.async = true
	}
}

// WithLatency adds a fixed delay before each delivery.
func WithLatency(d time.Duration) Option {
	return func(h *Hub) {
		h.latency = d
	}
}

// WithLossRate drops the given fraction (0..1) of messages silently,
// simulating an unreachable or flaky neighbor.
func WithLossRate(rate float64) Option {
	return func(h *Hub) {
		h.lossRate = rate
	}
}

// WithSeed fixes the Hub's random source, for deterministic tests of
// WithLossRate.
func WithSeed(seed int64) Option {
	return func(h *Hub) {
		h.rand = rand.New(rand.NewSource(seed))
	}
}

// WithDropTargets unconditionally drops every message addressed to
// any of addrs, deterministically simulating an unreachable neighbor.
func WithDropTargets(addrs ...domain.Address) Option {
	return func(h *Hub) {
		if h.dropTargets == nil {
			h.dropTargets = make(map[string]bool, len(addrs))
		}
		for _, a := range addrs {
			h.dropTargets[a.String()] = true
		}
	}
}
