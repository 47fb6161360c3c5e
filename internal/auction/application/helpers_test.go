package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// nopPublisher swallows settlement events in tests that do not close auctions.
type nopPublisher struct{}

func (nopPublisher) PublishAuctionClosed(context.Context, domain.AuctionClosedEvent) error {
	return nil
}

type fixture struct {
	svc    AuctionService
	store  domain.AuctionStore
	clock  *fakeClock
	seller uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.NewStore(), nopPublisher{})
}

func newFixtureWith(t *testing.T, store domain.AuctionStore, publisher domain.SettlementPublisher) *fixture {
	t.Helper()
	clock := newFakeClock()
	return &fixture{
		svc:    NewAuctionService(store, publisher, Options{Clock: clock.Now}),
		store:  store,
		clock:  clock,
		seller: uuid.New(),
	}
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// activeAuction creates and activates an auction starting at 100 with increment 10, ending in one hour.
func (f *fixture) activeAuction(t *testing.T, reserve decimal.NullDecimal) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	rec, err := f.svc.CreateAuction(ctx, CreateAuctionDTO{
		SellerID:        f.seller,
		Title:           "vintage camera",
		StartingPrice:   d("100"),
		IncrementAmount: d("10"),
		ReservePrice:    reserve,
		StartTime:       t0,
		EndTime:         t0.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.svc.ActivateAuction(ctx, rec.ID)
	require.NoError(t, err)
	return rec.ID
}

func (f *fixture) bid(t *testing.T, auctionID, bidderID uuid.UUID, amount string) *BidResolution {
	t.Helper()
	f.clock.Advance(time.Second)
	res, err := f.svc.PlaceManualBid(context.Background(), PlaceBidDTO{AuctionID: auctionID, BidderID: bidderID, Amount: d(amount)})
	require.NoError(t, err)
	return res
}

func (f *fixture) proxy(t *testing.T, auctionID, bidderID uuid.UUID, max string) *BidResolution {
	t.Helper()
	f.clock.Advance(time.Second)
	res, err := f.svc.SetProxyBid(context.Background(), SetProxyBidDTO{AuctionID: auctionID, BidderID: bidderID, MaxAmount: d(max)})
	require.NoError(t, err)
	return res
}

func (f *fixture) state(t *testing.T, auctionID uuid.UUID) *AuctionStateDTO {
	t.Helper()
	st, err := f.svc.GetAuctionState(context.Background(), auctionID)
	require.NoError(t, err)
	return st
}

func (f *fixture) history(t *testing.T, auctionID uuid.UUID) []*domain.Bid {
	t.Helper()
	bids, err := f.svc.GetBidHistory(context.Background(), auctionID)
	require.NoError(t, err)
	return bids
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

// faultyStore wraps a real store and lets tests inject Save failures.
type faultyStore struct {
	domain.AuctionStore
	mu        sync.Mutex
	saveCalls int
	onSave    func(call int, a *domain.Auction) error
}

func (s *faultyStore) Save(ctx context.Context, a *domain.Auction) error {
	s.mu.Lock()
	s.saveCalls++
	call := s.saveCalls
	hook := s.onSave
	s.mu.Unlock()

	if hook != nil {
		if err := hook(call, a); err != nil {
			return err
		}
	}
	return s.AuctionStore.Save(ctx, a)
}
