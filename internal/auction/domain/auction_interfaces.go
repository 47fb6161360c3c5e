package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuctionRepository interface {
	Create(ctx context.Context, record *AuctionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuctionRecord, error)
	// Load returns the aggregate or ErrAuctionNotFound.
	Load(ctx context.Context, id uuid.UUID) (*Auction, error)
	// Save persists record, pending bids and changed proxies atomically. It fails with
	// ErrVersionConflict when the stored record version differs from auction.Record.Version,
	// and bumps auction.Record.Version on success.
	Save(ctx context.Context, auction *Auction) error
	GetAuctionsEndingBefore(ctx context.Context, t time.Time) ([]*AuctionRecord, error)
	// GetAuctionsPendingSettlement lists closed auctions whose settlement hand-off was not acknowledged.
	GetAuctionsPendingSettlement(ctx context.Context) ([]*AuctionRecord, error)
}

type BidRepository interface {
	BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
	BidsForBidder(ctx context.Context, bidderID uuid.UUID) ([]*Bid, error)
	// HighestBid returns nil, nil when the auction has no bids.
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
}

type ProxyBidRepository interface {
	// GetProxyBid returns nil, nil when the bidder never set one.
	GetProxyBid(ctx context.Context, auctionID, bidderID uuid.UUID) (*ProxyBid, error)
}

// AuctionStore is everything the engine needs from persistence.
type AuctionStore interface {
	AuctionRepository
	BidRepository
	ProxyBidRepository
}
