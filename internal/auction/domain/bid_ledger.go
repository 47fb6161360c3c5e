package domain

import (
	"github.com/google/uuid"
)

// BidLedger is the append-only bid log of one auction. Bids appended since the
// ledger was loaded stay pending until the store persists them.
type BidLedger struct {
	auctionID uuid.UUID
	bids      []*Bid // append order
	committed int
}

// NewBidLedger wraps already persisted bids, which must be in append order.
func NewBidLedger(auctionID uuid.UUID, persisted []*Bid) *BidLedger {
	bids := make([]*Bid, len(persisted))
	copy(bids, persisted)
	return &BidLedger{auctionID: auctionID, bids: bids, committed: len(bids)}
}

// Append stores bid as is; validation is the caller's job. It returns the assigned bid id.
func (l *BidLedger) Append(bid *Bid) uuid.UUID {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	bid.AuctionID = l.auctionID
	bid.Seq = int64(len(l.bids)) + 1
	l.bids = append(l.bids, bid)
	return bid.ID
}

func (l *BidLedger) Len() int {
	return len(l.bids)
}

// Latest is the most recently appended bid.
func (l *BidLedger) Latest() *Bid {
	if len(l.bids) == 0 {
		return nil
	}
	return l.bids[len(l.bids)-1]
}

// HighestBid returns the greatest amount, the earliest one on ties.
func (l *BidLedger) HighestBid() *Bid {
	return Highest(l.bids)
}

// BidsForAuction is the full history ranked by amount desc then placedAt asc.
func (l *BidLedger) BidsForAuction() []*Bid {
	out := make([]*Bid, len(l.bids))
	copy(out, l.bids)
	SortByRank(out)
	return out
}

// BidsForBidder returns the bidder's bids in this ledger, newest first.
func (l *BidLedger) BidsForBidder(bidderID uuid.UUID) []*Bid {
	var out []*Bid
	for _, b := range l.bids {
		if b.BidderID == bidderID {
			out = append(out, b)
		}
	}
	SortByTimeDesc(out)
	return out
}

// Pending returns bids appended after load, in append order.
func (l *BidLedger) Pending() []*Bid {
	out := make([]*Bid, len(l.bids)-l.committed)
	copy(out, l.bids[l.committed:])
	return out
}

// MarkCommitted is called by stores once pending bids are durable.
func (l *BidLedger) MarkCommitted() {
	l.committed = len(l.bids)
}
