package chains

import (
	"context"
	"sync"

	"github.com/dataxfi/datax-go/internal/networks"
)

// Service hands out one dialed Client per chain id and closes them together.
type Service struct {
	registry *networks.Registry
	dial     func(ctx context.Context, n networks.Network, preferredRPC string) (*Client, error)

	mu             sync.Mutex
	clientsByChain map[uint64]*Client
}

func NewService(registry *networks.Registry) *Service {
	return &Service{
		registry:       registry,
		dial:           Dial,
		clientsByChain: make(map[uint64]*Client),
	}
}

func (s *Service) Registry() *networks.Registry { return s.registry }

// ClientFor resolves chainID (decimal or hex) and returns a cached or new client.
func (s *Service) ClientFor(ctx context.Context, chainID string) (*Client, error) {
	network, err := s.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clientsByChain[network.ChainID]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	// Dial outside the lock so a slow node does not block other chains.
	dialed, err := s.dial(ctx, network, s.registry.PreferredRPC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clientsByChain[network.ChainID]; existing != nil {
		s.mu.Unlock()
		dialed.Close()
		return existing, nil
	}
	s.clientsByChain[network.ChainID] = dialed
	s.mu.Unlock()

	return dialed, nil
}

// Close closes all cached clients.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.clientsByChain {
		c.Close()
		delete(s.clientsByChain, id)
	}
}
