package node

import (
	"context"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
)

// Leave departs the overlay on a best-effort basis: every populated
// neighbor is sent a fire-and-forget LeaveNotification so it can drop
// the stale slot immediately, rather than waiting for the next repair
// tick to discover it by a failed ping. Leave always succeeds locally
// (it does not require any neighbor to acknowledge); transport
// failures notifying individual neighbors are logged and otherwise
// ignored, consistent with "best-effort".
func (n *Node) Leave(ctx context.Context) error {
	if n.State() != StateActive {
		return domain.ErrInvalidState
	}
	self := n.identity
	entries := n.table.Neighbors()

	for _, e := range entries {
		msg := message.Message{
			ID:      message.NewID(),
			Source:  self.Address,
			Target:  e.Neighbor.Address,
			Payload: message.LeaveNotification{Leaving: self},
		}
		if err := n.net.Send(ctx, msg); err != nil {
			n.lgr.Warn("leave: failed to notify neighbor", logger.F("neighbor", e.Neighbor.Address.String()), logger.F("err", err.Error()))
		}
	}

	for level := 0; level < n.table.Levels(); level++ {
		n.table.RemoveEntry(level, domain.DirectionLeft)
		n.table.RemoveEntry(level, domain.DirectionRight)
	}

	n.setState(StateDeparted)
	return nil
}
