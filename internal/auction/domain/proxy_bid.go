package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProxyBid is a bidder's standing authorization to bid up to MaxAmount.
// At most one exists per (auction, bidder); records are deactivated, never deleted.
type ProxyBid struct {
	AuctionID         uuid.UUID
	BidderID          uuid.UUID
	MaxAmount         decimal.Decimal
	IncrementOverride decimal.NullDecimal
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectiveIncrement is the override when set, the auction increment otherwise.
func (p *ProxyBid) EffectiveIncrement(auctionIncrement decimal.Decimal) decimal.Decimal {
	if p.IncrementOverride.Valid {
		return p.IncrementOverride.Decimal
	}
	return auctionIncrement
}

// Outranks orders proxies by MaxAmount desc, then CreatedAt asc. BidderID makes the order total.
func (p *ProxyBid) Outranks(other *ProxyBid) bool {
	if !p.MaxAmount.Equal(other.MaxAmount) {
		return p.MaxAmount.GreaterThan(other.MaxAmount)
	}
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.Before(other.CreatedAt)
	}
	return p.BidderID.String() < other.BidderID.String()
}

// ProxyBidRegistry holds the standing authorizations of one auction and
// tracks which records changed since load.
type ProxyBidRegistry struct {
	auctionID uuid.UUID
	proxies   map[uuid.UUID]*ProxyBid
	dirty     map[uuid.UUID]struct{}
}

func NewProxyBidRegistry(auctionID uuid.UUID, persisted []*ProxyBid) *ProxyBidRegistry {
	r := &ProxyBidRegistry{
		auctionID: auctionID,
		proxies:   make(map[uuid.UUID]*ProxyBid, len(persisted)),
		dirty:     make(map[uuid.UUID]struct{}),
	}
	for _, p := range persisted {
		r.proxies[p.BidderID] = p
	}
	return r
}

// Get returns the bidder's record, active or not, nil when absent.
func (r *ProxyBidRegistry) Get(bidderID uuid.UUID) *ProxyBid {
	return r.proxies[bidderID]
}

// Upsert creates or replaces the bidder's authorization and reactivates it.
// CreatedAt restarts unless only the increment override of an active record changed;
// tie priority belongs to whoever committed to the amount first.
func (r *ProxyBidRegistry) Upsert(bidderID uuid.UUID, maxAmount decimal.Decimal, incrementOverride decimal.NullDecimal,
	currentPrice decimal.Decimal, now time.Time) (*ProxyBid, error) {
	if !maxAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if incrementOverride.Valid && !incrementOverride.Decimal.IsPositive() {
		return nil, ErrInvalidIncrement
	}
	if maxAmount.LessThanOrEqual(currentPrice) {
		return nil, ErrProxyMaxTooLow
	}

	p, ok := r.proxies[bidderID]
	if !ok {
		p = &ProxyBid{AuctionID: r.auctionID, BidderID: bidderID}
		r.proxies[bidderID] = p
	}
	if !ok || !p.Active || !p.MaxAmount.Equal(maxAmount) {
		p.CreatedAt = now
	}
	p.MaxAmount = maxAmount
	p.IncrementOverride = incrementOverride
	p.Active = true
	p.UpdatedAt = now
	r.dirty[bidderID] = struct{}{}
	return p, nil
}

// Deactivate is idempotent; it reports whether an active record was switched off.
func (r *ProxyBidRegistry) Deactivate(bidderID uuid.UUID, now time.Time) bool {
	p, ok := r.proxies[bidderID]
	if !ok || !p.Active {
		return false
	}
	p.Active = false
	p.UpdatedAt = now
	r.dirty[bidderID] = struct{}{}
	return true
}

// IsActive re-reads the current flag of a bidder's record.
func (r *ProxyBidRegistry) IsActive(bidderID uuid.UUID) bool {
	p, ok := r.proxies[bidderID]
	return ok && p.Active
}

// ActiveProxiesAbove returns the active proxies with MaxAmount > price, excluding
// excludeBidderID, strongest first.
func (r *ProxyBidRegistry) ActiveProxiesAbove(price decimal.Decimal, excludeBidderID uuid.UUID) []*ProxyBid {
	var out []*ProxyBid
	for _, p := range r.proxies {
		if p.Active && p.BidderID != excludeBidderID && p.MaxAmount.GreaterThan(price) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Outranks(out[j]) })
	return out
}

// DeactivateExhausted switches off every active proxy whose MaxAmount no longer exceeds price.
func (r *ProxyBidRegistry) DeactivateExhausted(price decimal.Decimal, now time.Time) []uuid.UUID {
	var ids []uuid.UUID
	for id, p := range r.proxies {
		if p.Active && p.MaxAmount.LessThanOrEqual(price) {
			r.Deactivate(id, now)
			ids = append(ids, id)
		}
	}
	return ids
}

// All returns every record, ordered by bidder id.
func (r *ProxyBidRegistry) All() []*ProxyBid {
	out := make([]*ProxyBid, 0, len(r.proxies))
	for _, p := range r.proxies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BidderID.String() < out[j].BidderID.String() })
	return out
}

// Changed returns records modified since load, ordered by bidder id.
func (r *ProxyBidRegistry) Changed() []*ProxyBid {
	out := make([]*ProxyBid, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, r.proxies[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BidderID.String() < out[j].BidderID.String() })
	return out
}

// MarkCommitted clears the change set once the store has persisted it.
func (r *ProxyBidRegistry) MarkCommitted() {
	r.dirty = make(map[uuid.UUID]struct{})
}
