// Package network defines the transport boundary the routing engine
// depends on: sending a Message addressed by domain.Address, and
// routing inbound Messages to a registered MessageProcessor. The
// production implementation lives in internal/tcpnetwork; the
// in-process test double lives in internal/mocknetwork.
package network

import (
	"context"

	"skipgraph/internal/domain"
	"skipgraph/internal/message"
)

// MessageProcessor receives inbound Messages delivered by a Network.
// Implementations must be safe for concurrent invocation: Process may
// be called from multiple goroutines at once.
type MessageProcessor interface {
	Process(ctx context.Context, msg message.Message) error
}

// Network is the send/receive boundary the search and join protocols
// are built against.
type Network interface {
	// Send delivers msg to msg.Target, fire-and-forget. Ordering
	// between messages to the same target is not guaranteed. Returns
	// a transport error if the target is unreachable.
	Send(ctx context.Context, msg message.Message) error

	// RegisterProcessor binds the inbound delivery target for addr.
	// A second registration at the same address replaces the first.
	RegisterProcessor(addr domain.Address, proc MessageProcessor)

	// Start brings the transport up (e.g. begins accepting
	// connections). It is a no-op for implementations with nothing to
	// start.
	Start() error

	// Stop tears the transport down, releasing any resources Start
	// acquired.
	Stop() error
}
