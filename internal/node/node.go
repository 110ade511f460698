// Package node implements the skip graph participant: the state
// machine that owns a LookupTable, dispatches inbound Messages, and
// drives the search/join/leave protocols over a Network.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skipgraph/internal/ctxutil"
	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/lookuptable"
	"skipgraph/internal/message"
	"skipgraph/internal/network"
	"skipgraph/internal/telemetry/searchtrace"
)

// State names the node's position in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateJoining
	StateActive
	StateFailed
	StateDeparted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateDeparted:
		return "departed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// pendingRequest is one outstanding outbound request awaiting a
// correlated reply.
type pendingRequest struct {
	replyCh chan message.Payload
}

// Node integrates the lookup table, the search/join protocols and a
// Network transport into one addressable skip graph participant.
type Node struct {
	identity domain.NodeIdentity
	space    domain.Space
	table    *lookuptable.LookupTable
	net      network.Network
	lgr      logger.Logger

	requestTimeout time.Duration
	pingTimeout    time.Duration

	// inner groups every mutable field of the node (state, pending
	// requests) under one lock, per the no-per-field-locks rule.
	inner struct {
		mu      sync.RWMutex
		state   State
		pending map[message.ID]*pendingRequest
	}
}

// New constructs a Created node bound to identity, sized by space, and
// communicating over net. The node does not accept inbound traffic
// until it transitions out of Created (see Join/CreateNewOverlay).
func New(identity domain.NodeIdentity, space domain.Space, net network.Network, opts ...Option) *Node {
	n := &Node{
		identity:       identity,
		space:          space,
		table:          lookuptable.New(identity, space),
		net:            net,
		lgr:            &logger.NopLogger{},
		requestTimeout: 30 * time.Second,
		pingTimeout:    2 * time.Second,
	}
	n.inner.state = StateCreated
	n.inner.pending = make(map[message.ID]*pendingRequest)
	for _, o := range opts {
		o(n)
	}
	n.net.RegisterProcessor(n.identity.Address, n)
	return n
}

// Identity returns the node's (Identifier, MembershipVector, Address)
// triple.
func (n *Node) Identity() domain.NodeIdentity {
	return n.identity
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.inner.mu.RLock()
	defer n.inner.mu.RUnlock()
	return n.inner.state
}

func (n *Node) setState(s State) {
	n.inner.mu.Lock()
	n.inner.state = s
	n.inner.mu.Unlock()
	n.lgr.Info("node state transition", logger.F("state", s.String()))
}

// GetLookupTable returns a live, shared handle to the node's lookup
// table: mutations performed by peers participating in join are
// visible through this handle, per the spec's resolution of its
// "live handle vs snapshot" open question. Read-only callers that only
// want a point-in-time view should use GetLookupTable().Neighbors()
// instead of retaining the handle across time.
func (n *Node) GetLookupTable() *lookuptable.LookupTable {
	return n.table
}

// CreateNewOverlay transitions a Created node directly to Active with
// an empty lookup table, founding a new overlay of one node. Used when
// no introducer is available. A no-op once the node has left the
// Created state.
func (n *Node) CreateNewOverlay() {
	if n.State() != StateCreated {
		return
	}
	n.setState(StateActive)
}

// registerPending creates a reply channel for id and registers it
// under the node's inner lock.
func (n *Node) registerPending(id message.ID) chan message.Payload {
	ch := make(chan message.Payload, 1)
	n.inner.mu.Lock()
	n.inner.pending[id] = &pendingRequest{replyCh: ch}
	n.inner.mu.Unlock()
	return ch
}

func (n *Node) removePending(id message.ID) {
	n.inner.mu.Lock()
	delete(n.inner.pending, id)
	n.inner.mu.Unlock()
}

// sendRequest sends payload to target and blocks until the correlated
// reply arrives, ctx is done, or requestTimeout elapses. It never
// holds the node's inner lock across the Network.Send call.
func (n *Node) sendRequest(ctx context.Context, target domain.Address, payload message.Payload) (message.Payload, error) {
	ctx = ctxutil.EnsureTraceID(ctx, n.identity.ID)

	id := message.NewID()
	ch := n.registerPending(id)
	defer n.removePending(id)

	msg := message.Message{
		ID:      id,
		Source:  n.identity.Address,
		Target:  target,
		Payload: payload,
	}

	ctx, cancel := context.WithTimeout(ctx, n.requestTimeout)
	defer cancel()

	if _, ok := payload.(message.SearchByIdRequest); ok {
		var endSpan func()
		ctx, endSpan = searchtrace.Inject(ctx, &msg, "skipgraph.search_hop")
		defer endSpan()
	}

	if err := n.net.Send(ctx, msg); err != nil {
		return nil, domain.Transportf("node: send to %s failed: %v", target, err)
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		n.lgr.Warn("request timed out",
			logger.F("target", target.String()),
			logger.F("message_id", id.String()),
			logger.F("trace_id", ctxutil.TraceIDFromContext(ctx)),
		)
		return nil, domain.ErrTimeout
	}
}

// deliverReply routes an inbound reply payload to its pending sender,
// if any. Unknown ids are logged and dropped, per the spec's
// unknown-message policy.
func (n *Node) deliverReply(id message.ID, payload message.Payload) {
	n.inner.mu.RLock()
	p, ok := n.inner.pending[id]
	n.inner.mu.RUnlock()
	if !ok {
		n.lgr.Warn("dropped reply for unknown message id", logger.F("message_id", id.String()))
		return
	}
	select {
	case p.replyCh <- payload:
	default:
	}
}

// reply sends payload back to target correlated by id, fire-and-forget
// (replies are never themselves acknowledged).
func (n *Node) reply(ctx context.Context, target domain.Address, id message.ID, payload message.Payload) {
	msg := message.Message{
		ID:      id,
		Source:  n.identity.Address,
		Target:  target,
		Payload: payload,
	}
	if err := n.net.Send(ctx, msg); err != nil {
		n.lgr.Warn("failed to send reply", logger.F("target", target.String()), logger.F("err", err.Error()))
	}
}
