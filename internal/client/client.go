// Package client is a standalone RPC client for the interactive REPL
// (cmd/client): it sends the same message.Payload requests a skip
// graph node would, without itself joining the overlay, and
// normalizes replies into a small set of sentinel errors the REPL can
// match on.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/message"
	"skipgraph/internal/tcpnetwork"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("node unavailable")
	ErrDeadlineExceeded = errors.New("request timeout exceeded")
	ErrInternal         = errors.New("internal error")
)

// normalizeError maps a domain/grpc-status-flavored error onto the
// REPL's small sentinel vocabulary.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return ErrInternal
	}
	switch s.Code() {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable:
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return ErrDeadlineExceeded
	default:
		return ErrInternal
	}
}

// Client issues one-off requests against a remote skip graph node over
// a private tcpnetwork.Network, correlating replies by message id the
// same way node.Node does internally.
type Client struct {
	net            *tcpnetwork.Network
	requestTimeout time.Duration

	mu      sync.Mutex
	pending map[message.ID]chan message.Payload
}

// New binds an ephemeral local listener (used only to receive replies)
// and returns a ready Client.
func New(requestTimeout time.Duration) (*Client, error) {
	net, err := tcpnetwork.New("private", "127.0.0.1", "127.0.0.1", 0)
	if err != nil {
		return nil, err
	}
	c := &Client{
		net:            net,
		requestTimeout: requestTimeout,
		pending:        make(map[message.ID]chan message.Payload),
	}
	net.RegisterProcessor(net.Advertised(), c)
	if err := net.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the client's listener and pooled connections.
func (c *Client) Close() error {
	return c.net.Stop()
}

// Process implements network.MessageProcessor, routing every inbound
// payload to its correlated pending call.
func (c *Client) Process(ctx context.Context, msg message.Message) error {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- msg.Payload:
	default:
	}
	return nil
}

func (c *Client) call(ctx context.Context, target domain.Address, payload message.Payload) (message.Payload, error) {
	id := message.NewID()
	ch := make(chan message.Payload, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	msg := message.Message{ID: id, Source: c.net.Advertised(), Target: target, Payload: payload}
	if err := c.net.Send(ctx, msg); err != nil {
		return nil, normalizeError(err)
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ErrDeadlineExceeded
	}
}

// Search asks target to resolve id, returning the termination node's
// identity.
func (c *Client) Search(ctx context.Context, target domain.Address, id domain.Identifier) (domain.NodeIdentity, error) {
	reply, err := c.call(ctx, target, message.SearchByIdRequest{Target: id, RemainingLevel: -1, Hops: 0})
	if err != nil {
		return domain.NodeIdentity{}, err
	}
	res, ok := reply.(message.SearchByIdResult)
	if !ok {
		return domain.NodeIdentity{}, ErrInternal
	}
	if !res.Found {
		return domain.NodeIdentity{}, ErrNotFound
	}
	return res.Termination, nil
}

// GetLookupTableSlot reads one (level, direction) slot from target's
// lookup table.
func (c *Client) GetLookupTableSlot(ctx context.Context, target domain.Address, level int, dir domain.Direction) (domain.NodeIdentity, bool, error) {
	reply, err := c.call(ctx, target, message.GetLookupTableSlotRequest{Level: level, Direction: dir})
	if err != nil {
		return domain.NodeIdentity{}, false, err
	}
	res, ok := reply.(message.GetLookupTableSlotResult)
	if !ok {
		return domain.NodeIdentity{}, false, ErrInternal
	}
	return res.Slot, res.HasSlot, nil
}

// Ping reports whether target is alive.
func (c *Client) Ping(ctx context.Context, target domain.Address) (bool, error) {
	reply, err := c.call(ctx, target, message.PingRequest{})
	if err != nil {
		return false, err
	}
	res, ok := reply.(message.PingResult)
	if !ok {
		return false, ErrInternal
	}
	return res.Alive, nil
}
