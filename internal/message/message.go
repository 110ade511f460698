// Package message defines the wire-level envelope and payload family
// exchanged between nodes: requests and replies for search, join and
// lookup-table introspection, correlated by message id.
package message

import (
	"encoding/gob"

	"skipgraph/internal/domain"

	"github.com/google/uuid"
)

// ID is a 128-bit value identifying one request/reply pair.
type ID = uuid.UUID

// NewID draws a fresh random message id.
func NewID() ID {
	return uuid.New()
}

// Message is the envelope every Network implementation transports:
// a message id, source and target addresses, a tagged payload, and a
// trace-context carrier propagated alongside it (see
// internal/telemetry/searchtrace).
type Message struct {
	ID      ID
	Source  domain.Address
	Target  domain.Address
	Payload Payload
	Carrier map[string]string
}

// Payload is the tagged union of request/reply bodies a Message can
// carry. The marker method keeps arbitrary types from satisfying the
// interface by accident.
type Payload interface {
	isPayload()
}

// Status reports the outcome of a JoinAtLevelRequest.
type Status int

const (
	StatusOk Status = iota
	StatusRejected
)

// SearchByIdRequest asks the receiver to continue a search for Target,
// starting its level descent at RemainingLevel, having already taken
// Hops hops.
type SearchByIdRequest struct {
	Target         domain.Identifier
	RemainingLevel int
	Hops           int
}

func (SearchByIdRequest) isPayload() {}

// SearchByIdResult is the correlated reply to a SearchByIdRequest.
type SearchByIdResult struct {
	Found            bool
	Termination      domain.NodeIdentity
	ExceededHopLimit bool
}

func (SearchByIdResult) isPayload() {}

// JoinAtLevelRequest asks the receiver to insert Joiner as its
// neighbor at Level, on side Side (a node joining as the receiver's
// right neighbor tells the receiver "I am your Side=Right neighbor").
type JoinAtLevelRequest struct {
	Level  int
	Joiner domain.NodeIdentity
	Side   domain.Direction
}

func (JoinAtLevelRequest) isPayload() {}

// JoinAtLevelResult is the correlated reply to a JoinAtLevelRequest:
// the receiver's neighbor at Level on the side opposite Side, i.e. the
// next node outward from the joiner (used by the joiner to keep walking
// the level-Level chain outward when deriving its Level+1 neighbor),
// and whether the insertion succeeded.
type JoinAtLevelResult struct {
	NeighborAtNextLevel    domain.NodeIdentity
	HasNeighborAtNextLevel bool
	Status                 Status
	Reason                 string
}

func (JoinAtLevelResult) isPayload() {}

// GetLookupTableSlotRequest asks the receiver for one lookup table
// slot, used by joining peers walking a neighbor chain.
type GetLookupTableSlotRequest struct {
	Level     int
	Direction domain.Direction
}

func (GetLookupTableSlotRequest) isPayload() {}

// GetLookupTableSlotResult is the correlated reply to a
// GetLookupTableSlotRequest.
type GetLookupTableSlotResult struct {
	Slot    domain.NodeIdentity
	HasSlot bool
}

func (GetLookupTableSlotResult) isPayload() {}

// PingRequest is a liveness probe used by the best-effort repair loop.
type PingRequest struct{}

func (PingRequest) isPayload() {}

// PingResult is the correlated reply to a PingRequest.
type PingResult struct {
	Alive bool
}

func (PingResult) isPayload() {}

// LeaveNotification is a fire-and-forget notice a departing node sends
// to its neighbors so they can drop the stale slot immediately instead
// of waiting for the repair loop to notice.
type LeaveNotification struct {
	Leaving domain.NodeIdentity
}

func (LeaveNotification) isPayload() {}

func init() {
	gob.Register(SearchByIdRequest{})
	gob.Register(SearchByIdResult{})
	gob.Register(JoinAtLevelRequest{})
	gob.Register(JoinAtLevelResult{})
	gob.Register(GetLookupTableSlotRequest{})
	gob.Register(GetLookupTableSlotResult{})
	gob.Register(PingRequest{})
	gob.Register(PingResult{})
	gob.Register(LeaveNotification{})
}
