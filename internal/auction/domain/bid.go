package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidOrigin tells whether a bid was submitted by a person or generated by a proxy.
type BidOrigin string

const (
	OriginManual       BidOrigin = "manual"
	OriginProxyCascade BidOrigin = "proxy_cascade"
)

// Bid is an accepted ledger entry. It is never changed once appended.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	PlacedAt  time.Time
	Origin    BidOrigin
	// Seq is the 1-based position of the bid in its auction ledger.
	Seq int64
}

// NewBid creates a new Bid instance, the ledger assigns ID and Seq on append.
func NewBid(auctionID, bidderID uuid.UUID, amount decimal.Decimal, placedAt time.Time, origin BidOrigin) *Bid {
	return &Bid{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  placedAt,
		Origin:    origin,
	}
}

// outranks orders bids by amount desc, then placedAt asc, then ledger position.
func (b *Bid) outranks(other *Bid) bool {
	if !b.Amount.Equal(other.Amount) {
		return b.Amount.GreaterThan(other.Amount)
	}
	if !b.PlacedAt.Equal(other.PlacedAt) {
		return b.PlacedAt.Before(other.PlacedAt)
	}
	return b.Seq < other.Seq
}

// SortByRank sorts in place: amount desc, placedAt asc.
func SortByRank(bids []*Bid) {
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].outranks(bids[j]) })
}

// SortByTimeDesc sorts in place, newest first.
func SortByTimeDesc(bids []*Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].PlacedAt.Equal(bids[j].PlacedAt) {
			return bids[i].PlacedAt.After(bids[j].PlacedAt)
		}
		return bids[i].Seq > bids[j].Seq
	})
}

// Highest returns the top ranked bid, nil for an empty slice.
func Highest(bids []*Bid) *Bid {
	var best *Bid
	for _, b := range bids {
		if best == nil || b.outranks(best) {
			best = b
		}
	}
	return best
}
