package node

import (
	"context"
	"strings"
	"testing"
	"time"

	"skipgraph/internal/domain"
	"skipgraph/internal/message"
	"skipgraph/internal/mocknetwork"
	"skipgraph/internal/network"
)

func testSpace(t *testing.T) domain.Space {
	t.Helper()
	sp, err := domain.NewSpace(32, 8, 0)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return sp
}

// mkIdentity builds a deterministic NodeIdentity: identifier is 31
// zero bytes followed by lastByte, membership vector is zero-filled
// (so CommonPrefixLength between any two such identities is always
// the full vector length, never constraining a join at any level).
func mkIdentity(t *testing.T, space domain.Space, lastByte byte, host string, port int) domain.NodeIdentity {
	t.Helper()
	raw := make([]byte, space.IdentifierBytes)
	raw[len(raw)-1] = lastByte
	id, err := domain.NewIdentifier(space, raw)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	mv := make(domain.MembershipVector, space.IdentifierBytes)
	return domain.NewNodeIdentity(id, mv, domain.NewAddress(host, port))
}

func mustIDFromHex(t *testing.T, space domain.Space, hex string) domain.Identifier {
	t.Helper()
	id, err := domain.IdentifierFromHex(space, hex)
	if err != nil {
		t.Fatalf("IdentifierFromHex(%q): %v", hex, err)
	}
	return id
}

// Scenario 1: singleton search.
func TestSingletonSearch(t *testing.T) {
	space := testSpace(t)
	net := mocknetwork.New()
	self := mkIdentity(t, space, 0x00, "n0", 1)
	n0 := New(self, space, net)
	n0.CreateNewOverlay()

	ctx := context.Background()
	res, err := n0.SearchByID(ctx, self.ID)
	if err != nil {
		t.Fatalf("search self: %v", err)
	}
	if !res.Found || !res.Termination.Equal(self) {
		t.Fatalf("search self = %+v, want Found(self)", res)
	}

	allFF := strings.Repeat("ff", space.IdentifierBytes)
	target := mustIDFromHex(t, space, allFF)
	res, err = n0.SearchByID(ctx, target)
	if err != nil {
		t.Fatalf("search 0xff..: %v", err)
	}
	if res.Found || !res.Termination.Equal(self) {
		t.Fatalf("search 0xff.. = %+v, want NotFound(termination=self)", res)
	}
}

// Scenario 2: two-node join and search.
func TestTwoNodeJoinAndSearch(t *testing.T) {
	space := testSpace(t)
	net := mocknetwork.New()
	ctx := context.Background()

	id0 := mkIdentity(t, space, 0x00, "n0", 1)
	id1 := mkIdentity(t, space, 0x01, "n1", 1)

	n0 := New(id0, space, net)
	n0.CreateNewOverlay()
	n1 := New(id1, space, net)

	if err := n1.Join(ctx, id0.Address); err != nil {
		t.Fatalf("join: %v", err)
	}

	right, ok := n0.GetLookupTable().GetEntry(0, domain.DirectionRight)
	if !ok || !right.Equal(id1) {
		t.Fatalf("n0.right[0] = %+v, ok=%v, want n1", right, ok)
	}
	left, ok := n1.GetLookupTable().GetEntry(0, domain.DirectionLeft)
	if !ok || !left.Equal(id0) {
		t.Fatalf("n1.left[0] = %+v, ok=%v, want n0", left, ok)
	}

	res, err := n1.SearchByID(ctx, id0.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Found || !res.Termination.Equal(id0) {
		t.Fatalf("n1.search(n0.id) = %+v, want Found(n0)", res)
	}
}

// Scenario 3 & 4: four-node staircase, joined sequentially through N1.
func fourNodeStaircase(t *testing.T) (space domain.Space, nodes []*Node, ctx context.Context) {
	t.Helper()
	space = testSpace(t)
	net := mocknetwork.New()
	ctx = context.Background()

	ids := make([]domain.NodeIdentity, 4)
	for i := range ids {
		ids[i] = mkIdentity(t, space, byte(i+1), "n", i+1)
	}

	nodes = make([]*Node, 4)
	nodes[0] = New(ids[0], space, net)
	nodes[0].CreateNewOverlay()
	for i := 1; i < 4; i++ {
		nodes[i] = New(ids[i], space, net)
		if err := nodes[i].Join(ctx, ids[0].Address); err != nil {
			t.Fatalf("node %d join: %v", i+1, err)
		}
	}
	return space, nodes, ctx
}

func TestFourNodeStaircaseSearch(t *testing.T) {
	space, nodes, ctx := fourNodeStaircase(t)
	target := mustIDFromHex(t, space, strings.Repeat("00", space.IdentifierBytes-1)+"04")

	res, err := nodes[0].SearchByID(ctx, target)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Found || !res.Termination.Equal(nodes[3].Identity()) {
		t.Fatalf("search(0x04..) = %+v, want Found(n4)", res)
	}
}

func TestFourNodeStaircaseNotFound(t *testing.T) {
	space, nodes, ctx := fourNodeStaircase(t)
	target := mustIDFromHex(t, space, strings.Repeat("00", space.IdentifierBytes-1)+"05")

	res, err := nodes[0].SearchByID(ctx, target)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Found || !res.Termination.Equal(nodes[3].Identity()) {
		t.Fatalf("search(0x05..) = %+v, want NotFound(termination=n4)", res)
	}
}

// spyProcessor records whether it was invoked and replies with a
// canned SearchByIdResult, used to prove the descent never forwards
// past an overshooting neighbor.
type spyProcessor struct {
	net     network.Network
	self    domain.Address
	called  chan message.Message
	replyAs domain.NodeIdentity
}

func (s *spyProcessor) Process(ctx context.Context, msg message.Message) error {
	s.called <- msg
	return s.net.Send(ctx, message.Message{
		ID:      msg.ID,
		Source:  s.self,
		Target:  msg.Source,
		Payload: message.SearchByIdResult{Found: true, Termination: s.replyAs},
	})
}

// Scenario 5: overshoot-free descent.
func TestOvershootFreeDescent(t *testing.T) {
	space := testSpace(t)
	net := mocknetwork.New()
	ctx := context.Background()

	self := mkIdentity(t, space, 0x10, "self", 1)
	k := mkIdentity(t, space, 0x15, "k", 1)
	m := mkIdentity(t, space, 0x20, "m", 1)
	target := mustIDFromHex(t, space, strings.Repeat("00", space.IdentifierBytes-1)+"18")

	selfNode := New(self, space, net)
	selfNode.CreateNewOverlay()
	if err := selfNode.GetLookupTable().UpdateEntry(1, domain.DirectionRight, k); err != nil {
		t.Fatalf("seed right[1]=k: %v", err)
	}
	if err := selfNode.GetLookupTable().UpdateEntry(2, domain.DirectionRight, m); err != nil {
		t.Fatalf("seed right[2]=m: %v", err)
	}

	kCalled := make(chan message.Message, 1)
	mCalled := make(chan message.Message, 1)
	net.RegisterProcessor(k.Address, &spyProcessor{net: net, self: k.Address, called: kCalled, replyAs: k})
	net.RegisterProcessor(m.Address, &spyProcessor{net: net, self: m.Address, called: mCalled, replyAs: m})

	_, err := selfNode.SearchByID(ctx, target)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	select {
	case <-kCalled:
	default:
		t.Fatalf("expected descent to forward to K (level 1), it did not")
	}
	select {
	case <-mCalled:
		t.Fatalf("descent forwarded to overshooting neighbor M (level 2)")
	default:
	}
}

// Scenario 6: timeout.
func TestSearchTimeout(t *testing.T) {
	space := testSpace(t)
	ctx := context.Background()

	self := mkIdentity(t, space, 0x10, "self", 1)
	unreachable := mkIdentity(t, space, 0x20, "gone", 1)

	net := mocknetwork.New(mocknetwork.WithDropTargets(unreachable.Address))
	selfNode := New(self, space, net, WithRequestTimeout(50*time.Millisecond))
	selfNode.CreateNewOverlay()
	if err := selfNode.GetLookupTable().UpdateEntry(0, domain.DirectionRight, unreachable); err != nil {
		t.Fatalf("seed right[0]: %v", err)
	}

	target := mustIDFromHex(t, space, "30"+strings.Repeat("00", space.IdentifierBytes-1))
	start := time.Now()
	_, err := selfNode.SearchByID(ctx, target)
	elapsed := time.Since(start)

	if err != domain.ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed > time.Second {
		t.Fatalf("timeout took %s, want it to fire close to the 50ms request timeout", elapsed)
	}

	selfNode.inner.mu.RLock()
	pending := len(selfNode.inner.pending)
	selfNode.inner.mu.RUnlock()
	if pending != 0 {
		t.Fatalf("pending requests after timeout = %d, want 0", pending)
	}
}

// Leave clears every populated slot and notifies neighbors.
func TestLeaveClearsNeighborSlots(t *testing.T) {
	space := testSpace(t)
	net := mocknetwork.New()
	ctx := context.Background()

	id0 := mkIdentity(t, space, 0x00, "n0", 1)
	id1 := mkIdentity(t, space, 0x01, "n1", 1)

	n0 := New(id0, space, net)
	n0.CreateNewOverlay()
	n1 := New(id1, space, net)
	if err := n1.Join(ctx, id0.Address); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := n1.Leave(ctx); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if n1.State() != StateDeparted {
		t.Fatalf("n1 state = %v, want Departed", n1.State())
	}
	if len(n1.GetLookupTable().Neighbors()) != 0 {
		t.Fatalf("n1 table not cleared after leave")
	}

	deadline := time.After(time.Second)
	for {
		if _, ok := n0.GetLookupTable().GetEntry(0, domain.DirectionRight); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("n0.right[0] still set after n1 left")
		case <-time.After(time.Millisecond):
		}
	}
}

// Repair clears a slot whose neighbor stops answering pings.
func TestRepairClearsDeadNeighbor(t *testing.T) {
	space := testSpace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	self := mkIdentity(t, space, 0x10, "self", 1)
	dead := mkIdentity(t, space, 0x20, "dead", 1)

	net := mocknetwork.New(mocknetwork.WithDropTargets(dead.Address))
	selfNode := New(self, space, net, WithPingTimeout(20*time.Millisecond))
	selfNode.CreateNewOverlay()
	if err := selfNode.GetLookupTable().UpdateEntry(0, domain.DirectionRight, dead); err != nil {
		t.Fatalf("seed right[0]: %v", err)
	}

	selfNode.StartRepair(ctx, 10*time.Millisecond)

	deadline := time.After(time.Second)
	for {
		if _, ok := selfNode.GetLookupTable().GetEntry(0, domain.DirectionRight); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("repair never cleared dead neighbor slot")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
