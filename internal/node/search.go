package node

import (
	"context"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
)

// SearchResult is the outcome of a search_by_id call: either the
// match, or the closest node the descent reached without overshooting
// the target.
type SearchResult struct {
	Found            bool
	Termination      domain.NodeIdentity
	ExceededHopLimit bool
}

// SearchByID resolves target starting the level descent at the
// highest level, blocking until a result is reached or ctx expires.
// Only an Active node can originate a search: a Created node has no
// lookup table to descend and a Joining/Failed/Departed node's table is
// not a reliable basis for one.
func (n *Node) SearchByID(ctx context.Context, target domain.Identifier) (SearchResult, error) {
	if n.State() != StateActive {
		return SearchResult{}, domain.ErrInvalidState
	}
	return n.searchFrom(ctx, target, n.space.Levels-1, 0)
}

// searchFrom re-executes the level-descent step starting at
// startLevel, having already taken hops forwards. Called both locally
// (hops=0, startLevel=L-1) and by the inbound SearchByIdRequest
// handler (continuing a remote search).
func (n *Node) searchFrom(ctx context.Context, target domain.Identifier, startLevel, hops int) (SearchResult, error) {
	self := n.identity

	if self.ID.Equal(target) {
		return SearchResult{Found: true, Termination: self}, nil
	}
	if hops >= n.space.HopLimit {
		return SearchResult{Found: false, Termination: self, ExceededHopLimit: true}, nil
	}

	dir := domain.DirectionRight
	if target.Less(self.ID) {
		dir = domain.DirectionLeft
	}

	next, level, ok := n.findAdmissibleNeighbor(target, dir, startLevel)
	if !ok {
		return SearchResult{Found: false, Termination: self}, nil
	}

	req := message.SearchByIdRequest{Target: target, RemainingLevel: level, Hops: hops + 1}
	reply, err := n.sendRequest(ctx, next.Address, req)
	if err != nil {
		return SearchResult{}, err
	}
	result, ok := reply.(message.SearchByIdResult)
	if !ok {
		return SearchResult{}, domain.Invariantf("node: unexpected reply type %T for search", reply)
	}
	return SearchResult{Found: result.Found, Termination: result.Termination, ExceededHopLimit: result.ExceededHopLimit}, nil
}

// findAdmissibleNeighbor finds the largest level <= startLevel whose
// (level, dir) slot is set and does not overshoot target.
func (n *Node) findAdmissibleNeighbor(target domain.Identifier, dir domain.Direction, startLevel int) (domain.NodeIdentity, int, bool) {
	for level := startLevel; level >= 0; level-- {
		next, ok := n.table.GetEntry(level, dir)
		if !ok {
			continue
		}
		if overshoots(next.ID, target, dir) {
			continue
		}
		return next, level, true
	}
	return domain.NodeIdentity{}, 0, false
}

// overshoots reports whether forwarding to next would pass target:
// for Right, next must not exceed target; for Left, next must not
// fall short of it. Equality is never an overshoot (the tie-break
// rule forwards directly to an exact match).
func overshoots(next, target domain.Identifier, dir domain.Direction) bool {
	if dir == domain.DirectionRight {
		return next.Cmp(target) > 0
	}
	return next.Cmp(target) < 0
}

// handleSearchByIdRequest continues a search forwarded from a peer and
// replies with the correlated SearchByIdResult. A negative
// RemainingLevel means the request originates outside the overlay
// (e.g. the CLI client), which has no notion of this node's level
// count; it is treated as "start the descent at this node's own top
// level".
func (n *Node) handleSearchByIdRequest(ctx context.Context, msg message.Message, req message.SearchByIdRequest) {
	startLevel := req.RemainingLevel
	if startLevel < 0 {
		startLevel = n.space.Levels - 1
	}
	result, err := n.searchFrom(ctx, req.Target, startLevel, req.Hops)
	if err != nil {
		n.lgr.Warn("search forwarding failed", logger.F("err", err.Error()), logger.F("message_id", msg.ID.String()))
		return
	}
	n.reply(ctx, msg.Source, msg.ID, message.SearchByIdResult{
		Found:            result.Found,
		Termination:      result.Termination,
		ExceededHopLimit: result.ExceededHopLimit,
	})
}
