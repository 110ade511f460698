package domain

// NodeIdentity is the immutable triple that names a participant in the
// skip graph: its position in the identifier space, its random
// membership vector, and where it can be reached.
type NodeIdentity struct {
	ID      Identifier
	MemVec  MembershipVector
	Address Address
}

// NewNodeIdentity builds a NodeIdentity from its three components.
func NewNodeIdentity(id Identifier, memVec MembershipVector, addr Address) NodeIdentity {
	return NodeIdentity{ID: id, MemVec: memVec, Address: addr}
}

// Equal reports whether two identities denote the same node: same
// identifier and same address. Membership vectors are not compared:
// they are drawn at random and two distinct nodes may share one, so
// they are not a distinguishing key.
func (n NodeIdentity) Equal(other NodeIdentity) bool {
	return n.ID.Equal(other.ID) && n.Address.Equal(other.Address)
}

// IsZero reports whether n is the zero-value identity (no identifier
// set), used throughout the lookup table to mean "empty slot".
func (n NodeIdentity) IsZero() bool {
	return len(n.ID) == 0
}
