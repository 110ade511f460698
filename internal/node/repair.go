package node

import (
	"context"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
)

// StartRepair launches a best-effort repair loop that pings every
// populated neighbor slot every interval and clears any slot whose
// neighbor fails to answer within the node's ping timeout. It runs
// until ctx is done. It does not attempt to re-fill cleared slots:
// that is left to the next join a peer performs through this node, or
// to an operator-triggered rejoin.
func (n *Node) StartRepair(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.repairOnce(ctx)
			}
		}
	}()
}

func (n *Node) repairOnce(ctx context.Context) {
	for level := 0; level < n.table.Levels(); level++ {
		for _, dir := range [2]domain.Direction{domain.DirectionLeft, domain.DirectionRight} {
			entry, ok := n.table.GetEntry(level, dir)
			if !ok {
				continue
			}
			if err := n.pingOnce(ctx, entry); err != nil {
				n.lgr.Warn("repair: neighbor unreachable, clearing slot",
					logger.F("level", level), logger.F("direction", dir.String()), logger.F("neighbor", entry.Address.String()), logger.F("err", err.Error()))
				n.table.RemoveEntry(level, dir)
			}
		}
	}
}

func (n *Node) pingOnce(ctx context.Context, target domain.NodeIdentity) error {
	pingCtx, cancel := context.WithTimeout(ctx, n.pingTimeout)
	defer cancel()
	reply, err := n.sendRequest(pingCtx, target.Address, message.PingRequest{})
	if err != nil {
		return err
	}
	result, ok := reply.(message.PingResult)
	if !ok || !result.Alive {
		return domain.Invariantf("node: unexpected ping reply from %s", target.Address)
	}
	return nil
}
