package rest

import (
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs. Amounts are decimals and may be sent as JSON strings or numbers.
type CreateAuctionRequest struct {
	SellerID             uuid.UUID           `json:"seller_id" validate:"required"`
	Title                string              `json:"title" validate:"required,max=200"`
	Description          string              `json:"description" validate:"max=4000"`
	StartingPrice        decimal.Decimal     `json:"starting_price" validate:"required"`
	IncrementAmount      decimal.Decimal     `json:"increment_amount" validate:"required"`
	ReservePrice         decimal.NullDecimal `json:"reserve_price"`
	StartTime            time.Time           `json:"start_time" validate:"required"`
	EndTime              time.Time           `json:"end_time" validate:"required,gtfield=StartTime"`
	TimeExtensionSeconds int64               `json:"time_extension_seconds" validate:"min=0,max=86400"`
}

type PlaceBidRequest struct {
	BidderID uuid.UUID       `json:"bidder_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

type SetProxyBidRequest struct {
	BidderID          uuid.UUID           `json:"bidder_id" validate:"required"`
	MaxAmount         decimal.Decimal     `json:"max_amount" validate:"required"`
	IncrementOverride decimal.NullDecimal `json:"increment_override"`
}

// Response DTOs
type AuctionResponse struct {
	ID              uuid.UUID           `json:"id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	StartingPrice   decimal.Decimal     `json:"starting_price"`
	ReservePrice    decimal.NullDecimal `json:"reserve_price"`
	CurrentPrice    decimal.Decimal     `json:"current_price"`
	IncrementAmount decimal.Decimal     `json:"increment_amount"`
	StartTime       string              `json:"start_time"`
	EndTime         string              `json:"end_time"`
	Status          string              `json:"status"`
	WinnerID        *uuid.UUID          `json:"winner_id,omitempty"`
	BidCount        int                 `json:"bid_count"`
}

func toAuctionResponse(rec *domain.AuctionRecord) AuctionResponse {
	resp := AuctionResponse{
		ID:              rec.ID,
		SellerID:        rec.SellerID,
		Title:           rec.Title,
		Description:     rec.Description,
		StartingPrice:   rec.StartingPrice,
		ReservePrice:    rec.ReservePrice,
		CurrentPrice:    rec.CurrentPrice,
		IncrementAmount: rec.IncrementAmount,
		StartTime:       rec.StartTime.UTC().Format(time.RFC3339),
		EndTime:         rec.EndTime.UTC().Format(time.RFC3339),
		Status:          string(rec.Status),
		BidCount:        rec.BidCount,
	}
	if rec.WinnerID.Valid {
		resp.WinnerID = &rec.WinnerID.UUID
	}
	return resp
}

type BidResponse struct {
	BidID     uuid.UUID       `json:"bid_id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Origin    string          `json:"origin"`
	PlacedAt  string          `json:"placed_at"`
}

func toBidResponses(bids []*domain.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidResponse{
			BidID:     b.ID,
			AuctionID: b.AuctionID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			Origin:    string(b.Origin),
			PlacedAt:  b.PlacedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

// ResolutionResponse is returned by the bid and proxy endpoints.
type ResolutionResponse struct {
	AuctionID       uuid.UUID       `json:"auction_id"`
	Accepted        *BidResponse    `json:"accepted,omitempty"`
	Cascade         []BidResponse   `json:"cascade"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	HighestBidderID *uuid.UUID      `json:"highest_bidder_id,omitempty"`
	Status          string          `json:"status"`
	EndTime         string          `json:"end_time"`
}

func toResolutionResponse(res *application.BidResolution) ResolutionResponse {
	resp := ResolutionResponse{
		AuctionID:    res.AuctionID,
		Cascade:      toBidResponses(res.Cascade),
		CurrentPrice: res.CurrentPrice,
		Status:       string(res.Status),
		EndTime:      res.EndTime.UTC().Format(time.RFC3339),
	}
	if res.Accepted != nil {
		accepted := toBidResponses([]*domain.Bid{res.Accepted})[0]
		resp.Accepted = &accepted
	}
	if res.HighestBidderID.Valid {
		resp.HighestBidderID = &res.HighestBidderID.UUID
	}
	return resp
}

type ProxyBidResponse struct {
	AuctionID         uuid.UUID           `json:"auction_id"`
	BidderID          uuid.UUID           `json:"bidder_id"`
	MaxAmount         decimal.Decimal     `json:"max_amount"`
	IncrementOverride decimal.NullDecimal `json:"increment_override"`
	Active            bool                `json:"active"`
	CreatedAt         string              `json:"created_at"`
}

func toProxyBidResponse(p *domain.ProxyBid) ProxyBidResponse {
	return ProxyBidResponse{
		AuctionID:         p.AuctionID,
		BidderID:          p.BidderID,
		MaxAmount:         p.MaxAmount,
		IncrementOverride: p.IncrementOverride,
		Active:            p.Active,
		CreatedAt:         p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
