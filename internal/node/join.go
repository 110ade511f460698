package node

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
)

// Join inserts self into the overlay using introducer as a bootstrap
// contact, performing the level-by-level neighbor discovery described
// by the routing protocol. A failure mid-way leaves the lookup table
// partially populated; the node is marked Failed and the error is
// returned for the caller to retry or abandon.
func (n *Node) Join(ctx context.Context, introducer domain.Address) error {
	if n.State() != StateCreated {
		return domain.ErrInvalidState
	}
	self := n.identity
	n.setState(StateJoining)

	bootstrapReply, err := n.sendRequest(ctx, introducer, message.SearchByIdRequest{
		Target:         self.ID,
		RemainingLevel: n.space.Levels - 1,
		Hops:           0,
	})
	if err != nil {
		n.setState(StateFailed)
		return err
	}
	searchResult, ok := bootstrapReply.(message.SearchByIdResult)
	if !ok {
		n.setState(StateFailed)
		return domain.Invariantf("node: unexpected bootstrap reply type %T", bootstrapReply)
	}
	if searchResult.Found && !searchResult.Termination.Address.Equal(self.Address) {
		n.setState(StateFailed)
		return domain.Rejected("duplicate identifier")
	}

	left, right, err := n.level0Neighbors(ctx, searchResult.Termination)
	if err != nil {
		n.setState(StateFailed)
		return err
	}

	for level := 0; level < n.space.Levels; level++ {
		left, right, err = n.joinAtLevel(ctx, level, left, right)
		if err != nil {
			n.setState(StateFailed)
			return err
		}
		if left == nil && right == nil {
			n.lgr.Debug("join: no admissible neighbor beyond level, remaining levels stay empty", logger.F("level", level))
			break
		}
	}

	n.setState(StateActive)
	return nil
}

// level0Neighbors derives self's initial left/right level-0 neighbors
// from the bootstrap search's termination node: termination is one of
// the two (whichever side the search approached from), and its
// opposite-side level-0 slot (read before self's insertion) is the
// other. A nil pointer means "no neighbor on that side" (self is
// joining at one end of the identifier space, or is the first node).
func (n *Node) level0Neighbors(ctx context.Context, termination domain.NodeIdentity) (*domain.NodeIdentity, *domain.NodeIdentity, error) {
	self := n.identity

	if termination.ID.Less(self.ID) {
		left := termination
		right, err := n.querySlot(ctx, termination, 0, domain.DirectionRight)
		if err != nil {
			return nil, nil, err
		}
		return &left, right, nil
	}

	right := termination
	left, err := n.querySlot(ctx, termination, 0, domain.DirectionLeft)
	if err != nil {
		return nil, nil, err
	}
	return left, &right, nil
}

// joinAtLevel inserts self between left and right (either may be nil)
// at level, and derives the candidate left/right neighbors for
// level+1 by walking the pre-insertion level chain outward.
func (n *Node) joinAtLevel(ctx context.Context, level int, left, right *domain.NodeIdentity) (*domain.NodeIdentity, *domain.NodeIdentity, error) {
	var leftPrev, rightPrev *domain.NodeIdentity

	if left != nil {
		ack, err := n.insertWithRetry(ctx, *left, level, domain.DirectionRight)
		if err != nil {
			return nil, nil, err
		}
		if err := n.table.UpdateEntry(level, domain.DirectionLeft, *left); err != nil {
			return nil, nil, err
		}
		if ack.HasNeighborAtNextLevel {
			p := ack.NeighborAtNextLevel
			leftPrev = &p
		}
	}
	if right != nil {
		ack, err := n.insertWithRetry(ctx, *right, level, domain.DirectionLeft)
		if err != nil {
			return nil, nil, err
		}
		if err := n.table.UpdateEntry(level, domain.DirectionRight, *right); err != nil {
			return nil, nil, err
		}
		if ack.HasNeighborAtNextLevel {
			p := ack.NeighborAtNextLevel
			rightPrev = &p
		}
	}

	nextLeft, err := n.deriveNext(ctx, left, leftPrev, level, domain.DirectionLeft)
	if err != nil {
		return nil, nil, err
	}
	nextRight, err := n.deriveNext(ctx, right, rightPrev, level, domain.DirectionRight)
	if err != nil {
		return nil, nil, err
	}
	return nextLeft, nextRight, nil
}

// insertWithRetry sends a JoinAtLevelRequest to neighbor, telling it
// self is its Side neighbor at level. A rejection (the receiver's
// lookup table refused the update) is retried once with the same
// request; a second rejection is returned to the caller as the
// Rejected error rather than retrying indefinitely.
func (n *Node) insertWithRetry(ctx context.Context, neighbor domain.NodeIdentity, level int, side domain.Direction) (message.JoinAtLevelResult, error) {
	ack, err := n.insertAt(ctx, neighbor, level, side)
	if err == nil {
		return ack, nil
	}
	if status.Code(err) != codes.Aborted {
		return message.JoinAtLevelResult{}, err
	}
	n.lgr.Warn("join: retrying rejected insertion", logger.F("level", level), logger.F("neighbor", neighbor.Address.String()))
	return n.insertAt(ctx, neighbor, level, side)
}

func (n *Node) insertAt(ctx context.Context, neighbor domain.NodeIdentity, level int, side domain.Direction) (message.JoinAtLevelResult, error) {
	reply, err := n.sendRequest(ctx, neighbor.Address, message.JoinAtLevelRequest{
		Level:  level,
		Joiner: n.identity,
		Side:   side,
	})
	if err != nil {
		return message.JoinAtLevelResult{}, err
	}
	ack, ok := reply.(message.JoinAtLevelResult)
	if !ok {
		return message.JoinAtLevelResult{}, domain.Invariantf("node: unexpected reply type %T for join at level", reply)
	}
	if ack.Status == message.StatusRejected {
		return message.JoinAtLevelResult{}, domain.Rejected(ack.Reason)
	}
	return ack, nil
}

// deriveNext finds the closest node, starting at start and continuing
// past it via prev (start's pre-insertion neighbor at level, in
// direction dir), whose membership vector shares at least level+1
// prefix bits with self's. Returns nil if the chain terminates first.
func (n *Node) deriveNext(ctx context.Context, start, prev *domain.NodeIdentity, level int, dir domain.Direction) (*domain.NodeIdentity, error) {
	self := n.identity
	if start == nil {
		return nil, nil
	}
	if start.MemVec.CommonPrefixLength(self.MemVec) >= level+1 {
		s := *start
		return &s, nil
	}

	current := prev
	for current != nil {
		if current.MemVec.CommonPrefixLength(self.MemVec) >= level+1 {
			c := *current
			return &c, nil
		}
		next, err := n.querySlot(ctx, *current, level, dir)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return nil, nil
}

// querySlot asks from for its (level, dir) lookup table slot.
func (n *Node) querySlot(ctx context.Context, from domain.NodeIdentity, level int, dir domain.Direction) (*domain.NodeIdentity, error) {
	reply, err := n.sendRequest(ctx, from.Address, message.GetLookupTableSlotRequest{Level: level, Direction: dir})
	if err != nil {
		return nil, err
	}
	result, ok := reply.(message.GetLookupTableSlotResult)
	if !ok {
		return nil, domain.Invariantf("node: unexpected reply type %T for lookup table slot query", reply)
	}
	if !result.HasSlot {
		return nil, nil
	}
	s := result.Slot
	return &s, nil
}
