package tcpnetwork

import (
	"context"
	"testing"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/message"
	"skipgraph/internal/network"
)

type recordingProcessor struct {
	ch chan message.Message
}

func (r *recordingProcessor) Process(ctx context.Context, msg message.Message) error {
	r.ch <- msg
	return nil
}

func TestSendReceiveRoundTrip(t *testing.T) {
	a, err := New("private", "127.0.0.1", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	defer a.Stop()
	b, err := New("private", "127.0.0.1", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("new b: %v", err)
	}
	defer b.Stop()

	if err := a.Start(); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("start b: %v", err)
	}

	received := make(chan message.Message, 1)
	b.RegisterProcessor(b.Advertised(), &recordingProcessor{ch: received})

	msg := message.Message{
		ID:      message.NewID(),
		Source:  a.Advertised(),
		Target:  b.Advertised(),
		Payload: message.PingRequest{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Send(ctx, msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != msg.ID {
			t.Fatalf("message id mismatch: got %v, want %v", got.ID, msg.ID)
		}
		if _, ok := got.Payload.(message.PingRequest); !ok {
			t.Fatalf("payload type = %T, want PingRequest", got.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestSendToUnreachableAddressFails(t *testing.T) {
	a, err := New("private", "127.0.0.1", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	defer a.Stop()
	if err := a.Start(); err != nil {
		t.Fatalf("start a: %v", err)
	}

	msg := message.Message{
		ID:      message.NewID(),
		Source:  a.Advertised(),
		Target:  domain.NewAddress("127.0.0.1", 1), // nothing listens on port 1
		Payload: message.PingRequest{},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := a.Send(ctx, msg); err == nil {
		t.Fatal("expected send to unreachable address to fail")
	}
}

var _ network.Network = (*Network)(nil)
