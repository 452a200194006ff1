package chains

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dataxfi/datax-go/internal/testutil/fakechain"
)

type HeaderCacheTestSuite struct {
	suite.Suite
	ctx   context.Context
	chain *fakechain.Chain
	cache *HeaderCache
	clock time.Time
}

func TestHeaderCacheTestSuite(t *testing.T) {
	suite.Run(t, new(HeaderCacheTestSuite))
}

func (s *HeaderCacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.chain = fakechain.New(fakechain.DevChainID)
	s.chain.BaseFee = big.NewInt(10_000_000_000)
	s.clock = time.Unix(1_700_000_000, 0)
	s.cache = NewHeaderCache(s.chain, 10*time.Second)
	s.cache.now = func() time.Time { return s.clock }
}

func (s *HeaderCacheTestSuite) TestServesCachedHeadUntilStale() {
	h, age, err := s.cache.LatestHeader(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), h.Number.Uint64())
	s.Equal(time.Duration(0), age)
	s.Equal(int64(1), s.cache.Loads())

	s.chain.Mine(3)
	s.chain.BaseFee = big.NewInt(20_000_000_000)
	s.clock = s.clock.Add(5 * time.Second)

	h, age, err = s.cache.LatestHeader(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), h.Number.Uint64())
	s.Equal("10000000000", h.BaseFee.String())
	s.Equal(5*time.Second, age)
	s.Equal(int64(1), s.cache.Loads())

	s.clock = s.clock.Add(6 * time.Second)
	h, age, err = s.cache.LatestHeader(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(103), h.Number.Uint64())
	s.Equal("20000000000", h.BaseFee.String())
	s.Equal(time.Duration(0), age)
	s.Equal(int64(2), s.cache.Loads())
}

func (s *HeaderCacheTestSuite) TestInvalidateForcesRefetch() {
	_, _, err := s.cache.LatestHeader(s.ctx)
	s.Require().NoError(err)

	s.chain.BaseFee = big.NewInt(30_000_000_000)
	s.cache.Invalidate()

	h, err := s.cache.HeaderByNumber(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal("30000000000", h.BaseFee.String())
	s.Equal(int64(2), s.cache.Loads())
}

func (s *HeaderCacheTestSuite) TestNumberedHeadersBypassTheCache() {
	h, err := s.cache.HeaderByNumber(s.ctx, big.NewInt(42))
	s.Require().NoError(err)
	s.Equal(uint64(42), h.Number.Uint64())
	s.Zero(s.cache.Loads())
}

func (s *HeaderCacheTestSuite) TestRunRefreshesUntilCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		s.cache.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	s.Eventually(func() bool { return s.cache.Loads() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Eventually(func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
