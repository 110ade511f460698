package bootstrap

import (
	"context"

	"skipgraph/internal/domain"
)

// StaticBootstrap hands back a fixed, operator-configured peer list.
// Register/Deregister are no-ops since there is nowhere to publish to.
type StaticBootstrap struct {
	peers []domain.Address
}

// NewStaticBootstrap parses host:port peers into addresses. An entry
// that fails to parse is skipped rather than failing the whole list,
// since a single typo in a long static peer list shouldn't prevent
// startup against the peers that did parse.
func NewStaticBootstrap(peers []string) *StaticBootstrap {
	out := make([]domain.Address, 0, len(peers))
	for _, p := range peers {
		addr, err := domain.ParseAddress(p)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return &StaticBootstrap{peers: out}
}

func (s *StaticBootstrap) Discover(ctx context.Context) ([]domain.Address, error) {
	return s.peers, nil
}

func (s *StaticBootstrap) Register(ctx context.Context, identity domain.NodeIdentity) error {
	return nil
}

func (s *StaticBootstrap) Deregister(ctx context.Context, identity domain.NodeIdentity) error {
	return nil
}
