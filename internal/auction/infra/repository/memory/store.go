package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
)

// Store is a concurrency-safe in-memory domain.AuctionStore. Everything handed
// out is a copy, so callers never alias stored state.
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*domain.AuctionRecord
	bids     map[uuid.UUID][]*domain.Bid // key: auctionID, append order
	proxies  map[uuid.UUID]map[uuid.UUID]*domain.ProxyBid
	byBidder map[uuid.UUID][]*domain.Bid
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*domain.AuctionRecord),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		proxies:  make(map[uuid.UUID]map[uuid.UUID]*domain.ProxyBid),
		byBidder: make(map[uuid.UUID][]*domain.Bid),
	}
}

func (s *Store) Create(ctx context.Context, record *domain.AuctionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[record.ID]; ok {
		return fmt.Errorf("create auction %s: already exists", record.ID)
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.auctions[record.ID] = copyRecord(record)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) Load(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	bids := make([]*domain.Bid, 0, len(s.bids[id]))
	for _, b := range s.bids[id] {
		bids = append(bids, copyBid(b))
	}
	proxies := make([]*domain.ProxyBid, 0, len(s.proxies[id]))
	for _, p := range s.proxies[id] {
		proxies = append(proxies, copyProxy(p))
	}
	return domain.NewAuction(copyRecord(rec), bids, proxies), nil
}

func (s *Store) Save(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := auction.Record
	stored, ok := s.auctions[rec.ID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if stored.Version != rec.Version {
		return domain.ErrVersionConflict
	}

	pending := auction.Ledger.Pending()
	if len(pending) > 0 && pending[0].Seq != int64(len(s.bids[rec.ID]))+1 {
		return domain.ErrVersionConflict
	}

	next := copyRecord(rec)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.auctions[rec.ID] = next

	for _, b := range pending {
		c := copyBid(b)
		s.bids[rec.ID] = append(s.bids[rec.ID], c)
		s.byBidder[c.BidderID] = append(s.byBidder[c.BidderID], c)
	}
	if changed := auction.Proxies.Changed(); len(changed) > 0 {
		if s.proxies[rec.ID] == nil {
			s.proxies[rec.ID] = make(map[uuid.UUID]*domain.ProxyBid)
		}
		for _, p := range changed {
			s.proxies[rec.ID][p.BidderID] = copyProxy(p)
		}
	}

	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	auction.Ledger.MarkCommitted()
	auction.Proxies.MarkCommitted()
	return nil
}

func (s *Store) GetAuctionsEndingBefore(ctx context.Context, t time.Time) ([]*domain.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuctionRecord
	for _, rec := range s.auctions {
		if rec.Status == domain.StatusActive && !rec.EndTime.After(t) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

// GetAuctionsPendingSettlement lists closed auctions whose settlement event is
// still unacknowledged, oldest close first.
func (s *Store) GetAuctionsPendingSettlement(ctx context.Context) ([]*domain.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuctionRecord
	for _, rec := range s.auctions {
		if rec.SettlementPending {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.Before(out[j].ClosedAt) })
	return out, nil
}

func (s *Store) BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		out = append(out, copyBid(b))
	}
	domain.SortByRank(out)
	return out, nil
}

func (s *Store) BidsForBidder(ctx context.Context, bidderID uuid.UUID) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Bid, 0, len(s.byBidder[bidderID]))
	for _, b := range s.byBidder[bidderID] {
		out = append(out, copyBid(b))
	}
	domain.SortByTimeDesc(out)
	return out, nil
}

func (s *Store) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := domain.Highest(s.bids[auctionID])
	if best == nil {
		return nil, nil
	}
	return copyBid(best), nil
}

func (s *Store) GetProxyBid(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.ProxyBid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proxies[auctionID][bidderID]
	if !ok {
		return nil, nil
	}
	return copyProxy(p), nil
}

func copyRecord(r *domain.AuctionRecord) *domain.AuctionRecord {
	c := *r
	return &c
}

func copyBid(b *domain.Bid) *domain.Bid {
	c := *b
	return &c
}

func copyProxy(p *domain.ProxyBid) *domain.ProxyBid {
	c := *p
	return &c
}
