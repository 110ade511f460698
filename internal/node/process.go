package node

import (
	"context"
	"fmt"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
	"skipgraph/internal/telemetry/searchtrace"
)

// acceptsRequest reports whether an inbound request of this payload
// type may be handled in the node's current state: Created accepts no
// inbound messages, Joining accepts only JoinAtLevelRequest (the
// messages peers send it while it is being spliced into their
// tables), Active accepts everything. Failed and Departed nodes accept
// nothing, same as Created.
func (n *Node) acceptsRequest(payload message.Payload) bool {
	switch n.State() {
	case StateActive:
		return true
	case StateJoining:
		_, ok := payload.(message.JoinAtLevelRequest)
		return ok
	default:
		return false
	}
}

// dropForState logs and discards an inbound request the node's current
// state does not accept.
func (n *Node) dropForState(msg message.Message) {
	n.lgr.Warn("dropped inbound request: not accepted in current node state",
		logger.F("state", n.State().String()),
		logger.F("payload_type", fmt.Sprintf("%T", msg.Payload)),
		logger.F("message_id", msg.ID.String()),
	)
}

// Process implements network.MessageProcessor. Requests that may
// themselves forward further requests (search, join, slot queries) are
// handled on their own goroutine so a synchronous Network
// implementation (e.g. mocknetwork.Hub) delivering Process calls
// in-line never deadlocks against this node's own outbound sends.
// Replies are delivered synchronously to the waiting sender, regardless
// of the node's state, since they correlate this node's own outbound
// requests rather than being inbound requests subject to the state
// machine's acceptance rules.
func (n *Node) Process(ctx context.Context, msg message.Message) error {
	switch p := msg.Payload.(type) {
	case message.SearchByIdRequest:
		if !n.acceptsRequest(p) {
			n.dropForState(msg)
			return nil
		}
		spanCtx, endSpan := searchtrace.Extract(context.Background(), msg, "skipgraph.search_hop")
		go func() {
			defer endSpan()
			n.handleSearchByIdRequest(spanCtx, msg, p)
		}()
	case message.JoinAtLevelRequest:
		if !n.acceptsRequest(p) {
			n.dropForState(msg)
			return nil
		}
		go n.handleJoinAtLevelRequest(context.Background(), msg, p)
	case message.GetLookupTableSlotRequest:
		if !n.acceptsRequest(p) {
			n.dropForState(msg)
			return nil
		}
		go n.handleGetLookupTableSlotRequest(context.Background(), msg, p)
	case message.PingRequest:
		if !n.acceptsRequest(p) {
			n.dropForState(msg)
			return nil
		}
		go n.handlePingRequest(context.Background(), msg, p)
	case message.LeaveNotification:
		if !n.acceptsRequest(p) {
			n.dropForState(msg)
			return nil
		}
		go n.handleLeaveNotification(msg, p)

	case message.SearchByIdResult:
		n.deliverReply(msg.ID, p)
	case message.JoinAtLevelResult:
		n.deliverReply(msg.ID, p)
	case message.GetLookupTableSlotResult:
		n.deliverReply(msg.ID, p)
	case message.PingResult:
		n.deliverReply(msg.ID, p)

	default:
		return domain.Invariantf("node: unknown payload type %T", msg.Payload)
	}
	return nil
}

// handleJoinAtLevelRequest inserts req.Joiner as this node's neighbor
// at (req.Level, req.Side) and replies with this node's neighbor at
// (req.Level, opposite of req.Side), the next node outward from the
// joiner, which the joiner uses to continue deriving its next-level
// candidates.
func (n *Node) handleJoinAtLevelRequest(ctx context.Context, msg message.Message, req message.JoinAtLevelRequest) {
	prev, hadPrev := n.table.GetEntry(req.Level, req.Side.Opposite())
	if err := n.table.UpdateEntry(req.Level, req.Side, req.Joiner); err != nil {
		n.lgr.Warn("rejected join at level", logger.F("level", req.Level), logger.F("joiner", req.Joiner.Address.String()), logger.F("err", err.Error()))
		n.reply(ctx, msg.Source, msg.ID, message.JoinAtLevelResult{Status: message.StatusRejected, Reason: err.Error()})
		return
	}
	n.reply(ctx, msg.Source, msg.ID, message.JoinAtLevelResult{
		NeighborAtNextLevel:    prev,
		HasNeighborAtNextLevel: hadPrev,
		Status:                 message.StatusOk,
	})
}

func (n *Node) handleGetLookupTableSlotRequest(ctx context.Context, msg message.Message, req message.GetLookupTableSlotRequest) {
	slot, ok := n.table.GetEntry(req.Level, req.Direction)
	n.reply(ctx, msg.Source, msg.ID, message.GetLookupTableSlotResult{Slot: slot, HasSlot: ok})
}

func (n *Node) handlePingRequest(ctx context.Context, msg message.Message, _ message.PingRequest) {
	n.reply(ctx, msg.Source, msg.ID, message.PingResult{Alive: true})
}

// handleLeaveNotification drops any slot referencing the departing
// node. It does not reply: LeaveNotification is fire-and-forget.
func (n *Node) handleLeaveNotification(msg message.Message, note message.LeaveNotification) {
	for level := 0; level < n.table.Levels(); level++ {
		for _, dir := range [2]domain.Direction{domain.DirectionLeft, domain.DirectionRight} {
			entry, ok := n.table.GetEntry(level, dir)
			if ok && entry.Address.Equal(note.Leaving.Address) {
				n.table.RemoveEntry(level, dir)
			}
		}
	}
	n.lgr.Debug("cleared neighbor slots after leave notification", logger.F("neighbor", note.Leaving.Address.String()), logger.F("message_id", msg.ID.String()))
}
