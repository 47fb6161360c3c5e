package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO is the read model exposed to the HTTP and WS layers.
type AuctionStateDTO struct {
	AuctionID       uuid.UUID           `json:"auction_id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	StartingPrice   decimal.Decimal     `json:"starting_price"`
	ReservePrice    decimal.NullDecimal `json:"reserve_price"`
	CurrentPrice    decimal.Decimal     `json:"current_price"`
	IncrementAmount decimal.Decimal     `json:"increment_amount"`
	MinimumNextBid  decimal.Decimal     `json:"minimum_next_bid"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         time.Time           `json:"end_time"`
	Status          string              `json:"status"`
	WinnerID        *uuid.UUID          `json:"winner_id,omitempty"`
	BidCount        int                 `json:"bid_count"`
	HighestBidderID *uuid.UUID          `json:"highest_bidder_id,omitempty"`
	HighestBidAt    *time.Time          `json:"highest_bid_at,omitempty"`
}

// GetAuctionStateUseCase retrieves the current state of an auction.
type GetAuctionStateUseCase struct {
	store domain.AuctionStore
}

func NewGetAuctionStateUseCase(store domain.AuctionStore) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{store: store}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	rec, err := getRecord(ctx, uc.store, auctionID)
	if err != nil {
		return nil, err
	}

	dto := &AuctionStateDTO{
		AuctionID:       rec.ID,
		SellerID:        rec.SellerID,
		Title:           rec.Title,
		Description:     rec.Description,
		StartingPrice:   rec.StartingPrice,
		ReservePrice:    rec.ReservePrice,
		CurrentPrice:    rec.CurrentPrice,
		IncrementAmount: rec.IncrementAmount,
		MinimumNextBid:  rec.MinimumNextBid(),
		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
		Status:          string(rec.Status),
		BidCount:        rec.BidCount,
	}
	if rec.WinnerID.Valid {
		dto.WinnerID = &rec.WinnerID.UUID
	}

	bid, err := uc.store.HighestBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction state %s: %w: %w", auctionID, domain.ErrSystem, err)
	}
	if bid != nil {
		dto.HighestBidderID = &bid.BidderID
		dto.HighestBidAt = &bid.PlacedAt
	}
	return dto, nil
}

// BidQueriesUseCase serves the read-only ledger and proxy queries.
type BidQueriesUseCase struct {
	store domain.AuctionStore
}

func NewBidQueriesUseCase(store domain.AuctionStore) *BidQueriesUseCase {
	return &BidQueriesUseCase{store: store}
}

// BidHistory is amount desc, then placedAt asc.
func (uc *BidQueriesUseCase) BidHistory(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	if _, err := getRecord(ctx, uc.store, auctionID); err != nil {
		return nil, err
	}
	bids, err := uc.store.BidsForAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bid history %s: %w: %w", auctionID, domain.ErrSystem, err)
	}
	return bids, nil
}

// ProxySetting returns nil, nil when the bidder has no proxy on the auction.
func (uc *BidQueriesUseCase) ProxySetting(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.ProxyBid, error) {
	if _, err := getRecord(ctx, uc.store, auctionID); err != nil {
		return nil, err
	}
	p, err := uc.store.GetProxyBid(ctx, auctionID, bidderID)
	if err != nil {
		return nil, fmt.Errorf("get proxy setting %s: %w: %w", auctionID, domain.ErrSystem, err)
	}
	return p, nil
}

// BidderBids lists a bidder's bids across auctions, newest first.
func (uc *BidQueriesUseCase) BidderBids(ctx context.Context, bidderID uuid.UUID) ([]*domain.Bid, error) {
	bids, err := uc.store.BidsForBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("get bids for bidder %s: %w: %w", bidderID, domain.ErrSystem, err)
	}
	return bids, nil
}

func getRecord(ctx context.Context, store domain.AuctionStore, auctionID uuid.UUID) (*domain.AuctionRecord, error) {
	rec, err := store.GetByID(ctx, auctionID)
	if err != nil {
		if domain.Kind(err) == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get auction %s: %w: %w", auctionID, domain.ErrSystem, err)
	}
	return rec, nil
}
