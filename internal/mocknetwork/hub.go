// Package mocknetwork provides an in-process network.Network
// implementation for tests: a Hub routes Messages directly to
// registered MessageProcessors by address, with no real sockets.
package mocknetwork

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
	"skipgraph/internal/network"
)

// Hub is a registry-of-handlers in-process transport: every Node
// sharing a Hub registers itself under its own Address, and Send
// delivers straight to the target's registered processor. Delivery can
// be made asynchronous and lossy/jittery to exercise timeout and
// repair paths without a real network.
type Hub struct {
	lgr logger.Logger

	mu    sync.RWMutex
	procs map[string]network.MessageProcessor

	// async delivers every Send on its own goroutine instead of
	// in-line. Use this to avoid the call stack growing unbounded
	// through chained synchronous forwards in multi-hop tests.
	async bool
	// latency, if non-zero, is added before delivery.
	latency time.Duration
	// lossRate is the fraction (0..1) of messages silently dropped to
	// simulate network failure, not a transport error: callers see
	// Send succeed (fire-and-forget semantics) but no reply arrives,
	// which exercises the request-timeout path.
	lossRate float64
	randMu   sync.Mutex
	rand     *rand.Rand
	// dropTargets names addresses whose inbound messages are always
	// dropped, regardless of lossRate — used to deterministically
	// simulate one unreachable neighbor in tests.
	dropTargets map[string]bool
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		lgr:   &logger.NopLogger{},
		procs: make(map[string]network.MessageProcessor),
		rand:  rand.New(rand.NewSource(1)),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterProcessor binds addr to proc. A second registration at the
// same address replaces the first.
func (h *Hub) RegisterProcessor(addr domain.Address, proc network.MessageProcessor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.procs[addr.String()] = proc
}

// roll draws the next loss-check float from the Hub's shared source,
// safe for concurrent callers (rand.Rand itself is not).
func (h *Hub) roll() float64 {
	h.randMu.Lock()
	defer h.randMu.Unlock()
	return h.rand.Float64()
}

// Send routes msg to msg.Target's registered processor, if any.
func (h *Hub) Send(ctx context.Context, msg message.Message) error {
	if h.dropTargets[msg.Target.String()] {
		h.lgr.Debug("dropped message to excluded target", logger.F("target", msg.Target.String()), logger.F("message_id", fmt.Sprint(msg.ID)))
		return nil
	}

	h.mu.RLock()
	proc, ok := h.procs[msg.Target.String()]
	h.mu.RUnlock()
	if !ok {
		return domain.Transportf("mocknetwork: no processor registered for %s", msg.Target)
	}

	if h.lossRate > 0 && h.roll() < h.lossRate {
		h.lgr.Debug("dropped message", logger.F("target", msg.Target.String()), logger.F("message_id", fmt.Sprint(msg.ID)))
		return nil
	}

	deliver := func() {
		if h.latency > 0 {
			time.Sleep(h.latency)
		}
		if err := proc.Process(ctx, msg); err != nil {
			h.lgr.Warn("processor returned error", logger.F("target", msg.Target.String()), logger.F("err", err.Error()))
		}
	}

	if h.async {
		go deliver()
	} else {
		deliver()
	}
	return nil
}

// Start is a no-op: a Hub has nothing to bring up.
func (h *Hub) Start() error { return nil }

// Stop is a no-op: a Hub has nothing to tear down.
func (h *Hub) Stop() error { return nil }
