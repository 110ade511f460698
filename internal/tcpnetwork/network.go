// Package tcpnetwork is the production network.Network: raw TCP
// connections framed with a 4-byte big-endian length prefix, carrying
// gob-encoded message.Message values. A pooled outbound dialer is kept
// per remote address; inbound connections are accepted once and read
// until the peer closes or a frame fails to decode.
package tcpnetwork

import (
	"context"
	"net"
	"sync"
	"time"

	"skipgraph/internal/config"
	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	"skipgraph/internal/message"
	"skipgraph/internal/network"
)

// Network implements network.Network over raw TCP.
type Network struct {
	lgr logger.Logger

	listener   net.Listener
	advertised domain.Address
	pool       *connPool

	procsMu sync.RWMutex
	procs   map[string]network.MessageProcessor

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	dial time.Duration
	idle time.Duration
}

// New binds a listener per mode/bind/host/port (see config.Listen) and
// returns a Network advertising the resolved address.
func New(mode, bind, host string, port int, opts ...Option) (*Network, error) {
	lis, advertised, err := config.Listen(mode, bind, host, port)
	if err != nil {
		return nil, err
	}
	addr, err := domain.ParseAddress(advertised)
	if err != nil {
		_ = lis.Close()
		return nil, err
	}

	n := &Network{
		lgr:        &logger.NopLogger{},
		listener:   lis,
		advertised: addr,
		procs:      make(map[string]network.MessageProcessor),
		stopCh:     make(chan struct{}),
	}
	for _, o := range opts {
		o(n)
	}
	n.pool = newConnPool(n.lgr, n.dialTimeout(), n.idleTTL())
	return n, nil
}

// Advertised returns the address other nodes should use to reach this
// Network.
func (n *Network) Advertised() domain.Address {
	return n.advertised
}

// RegisterProcessor binds addr to proc. A second registration at the
// same address replaces the first.
func (n *Network) RegisterProcessor(addr domain.Address, proc network.MessageProcessor) {
	n.procsMu.Lock()
	defer n.procsMu.Unlock()
	n.procs[addr.String()] = proc
}

func (n *Network) lookup(addr domain.Address) (network.MessageProcessor, bool) {
	n.procsMu.RLock()
	defer n.procsMu.RUnlock()
	p, ok := n.procs[addr.String()]
	return p, ok
}

// Start begins accepting inbound connections.
func (n *Network) Start() error {
	n.wg.Add(1)
	go n.acceptLoop()
	return nil
}

// Stop closes the listener, every pooled outbound connection, and
// waits for the accept loop to drain.
func (n *Network) Stop() error {
	n.stopOnce.Do(func() { close(n.stopCh) })
	err := n.listener.Close()
	n.pool.closeAll()
	n.wg.Wait()
	return err
}

func (n *Network) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				n.lgr.Warn("accept failed", logger.F("err", err.Error()))
				return
			}
		}
		n.wg.Add(1)
		go n.handleConn(conn)
	}
}

func (n *Network) handleConn(conn net.Conn) {
	defer n.wg.Done()
	defer conn.Close()
	for {
		msg, err := readFrame(conn)
		if err != nil {
			return
		}
		proc, ok := n.lookup(msg.Target)
		if !ok {
			n.lgr.Warn("dropped inbound message: no processor registered", logger.F("target", msg.Target.String()))
			continue
		}
		go func(m message.Message) {
			if err := proc.Process(context.Background(), m); err != nil {
				n.lgr.Warn("processor returned error", logger.F("err", err.Error()))
			}
		}(msg)
	}
}

// Send dials (or reuses) a pooled connection to msg.Target and writes
// msg as one length-prefixed frame.
func (n *Network) Send(ctx context.Context, msg message.Message) error {
	addr := msg.Target.String()
	pc, err := n.pool.get(ctx, addr)
	if err != nil {
		return domain.Transportf("tcpnetwork: dial %s: %v", addr, err)
	}

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = pc.conn.SetWriteDeadline(deadline)
		defer pc.conn.SetWriteDeadline(time.Time{})
	}
	if err := writeFrame(pc.conn, msg); err != nil {
		n.pool.drop(addr)
		return domain.Transportf("tcpnetwork: send to %s: %v", addr, err)
	}
	return nil
}
