package tcpnetwork

import (
	"context"
	"net"
	"sync"
	"time"

	"skipgraph/internal/logger"
)

// pooledConn is one reusable outbound connection, serialized for
// concurrent writers since net.Conn.Write is not safe to call from
// multiple goroutines at once without external coordination.
type pooledConn struct {
	conn     net.Conn
	writeMu  sync.Mutex
	lastUsed time.Time
}

// connPool holds reusable outbound connections keyed by "host:port",
// evicting idle entries on a ticker. Grounded on the same
// reusable-connection-by-address idiom as a gRPC client pool, adapted
// to raw net.Conn.
type connPool struct {
	lgr         logger.Logger
	dialTimeout time.Duration
	idleTTL     time.Duration

	mu    sync.Mutex
	conns map[string]*pooledConn

	stopCh chan struct{}
}

func newConnPool(lgr logger.Logger, dialTimeout, idleTTL time.Duration) *connPool {
	p := &connPool{
		lgr:         lgr,
		dialTimeout: dialTimeout,
		idleTTL:     idleTTL,
		conns:       make(map[string]*pooledConn),
		stopCh:      make(chan struct{}),
	}
	if idleTTL > 0 {
		go p.evictLoop()
	}
	return p
}

// get returns a reusable connection to addr, dialing a fresh one if
// none is cached. A cached connection is returned without a liveness
// check; one that fails a write is removed by drop.
func (p *connPool) get(ctx context.Context, addr string) (*pooledConn, error) {
	p.mu.Lock()
	if pc, ok := p.conns[addr]; ok {
		pc.lastUsed = time.Now()
		p.mu.Unlock()
		return pc, nil
	}
	p.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.conns[addr]; ok {
		// another goroutine dialed first; keep theirs, drop ours.
		_ = conn.Close()
		existing.lastUsed = time.Now()
		return existing, nil
	}
	pc := &pooledConn{conn: conn, lastUsed: time.Now()}
	p.conns[addr] = pc
	p.lgr.Debug("dialed new connection", logger.F("addr", addr))
	return pc, nil
}

// drop removes addr's cached connection and closes it, used when a
// write fails so the next get dials fresh.
func (p *connPool) drop(addr string) {
	p.mu.Lock()
	pc, ok := p.conns[addr]
	if ok {
		delete(p.conns, addr)
	}
	p.mu.Unlock()
	if ok {
		_ = pc.conn.Close()
	}
}

func (p *connPool) closeAll() {
	close(p.stopCh)
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, pc := range p.conns {
		_ = pc.conn.Close()
		delete(p.conns, addr)
	}
}

func (p *connPool) evictLoop() {
	t := time.NewTicker(p.idleTTL)
	defer t.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-t.C:
			p.evictIdle()
		}
	}
}

func (p *connPool) evictIdle() {
	now := time.Now()
	var toClose []*pooledConn

	p.mu.Lock()
	for addr, pc := range p.conns {
		if now.Sub(pc.lastUsed) >= p.idleTTL {
			toClose = append(toClose, pc)
			delete(p.conns, addr)
		}
	}
	p.mu.Unlock()

	for _, pc := range toClose {
		_ = pc.conn.Close()
	}
}
