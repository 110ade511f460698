// Package bootstrap resolves the set of peers a node should try to
// join through, and optionally advertises the node itself once it has
// joined, so that later joiners can discover it in turn.
package bootstrap

import (
	"context"

	"skipgraph/internal/domain"
)

// Bootstrap is a pluggable peer-discovery and self-advertisement
// backend. Discover is called once at startup to find an introducer;
// Register/Deregister are no-ops for backends (like a static peer
// list) that have nothing to publish.
type Bootstrap interface {
	// Discover returns addresses of known peers to attempt joining
	// through, in no particular order.
	Discover(ctx context.Context) ([]domain.Address, error)
	// Register advertises identity so other nodes can discover it.
	Register(ctx context.Context, identity domain.NodeIdentity) error
	// Deregister withdraws a previously published advertisement.
	Deregister(ctx context.Context, identity domain.NodeIdentity) error
}
