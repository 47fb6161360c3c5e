package domain

//go:generate mockgen -source=settlement.go -destination=mock_settlement.go -package=domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionClosedEvent is handed to the settlement service once closing produced
// the final (winner, price) pair.
type AuctionClosedEvent struct {
	AuctionID  uuid.UUID       `json:"auction_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	Status     Status          `json:"status"`
	WinnerID   uuid.NullUUID   `json:"winner_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// NewAuctionClosedEvent rebuilds the event of a closed record, so an
// unacknowledged hand-off can be offered again with the same content.
func NewAuctionClosedEvent(rec *AuctionRecord) AuctionClosedEvent {
	return AuctionClosedEvent{
		AuctionID:  rec.ID,
		SellerID:   rec.SellerID,
		Status:     rec.Status,
		WinnerID:   rec.WinnerID,
		FinalPrice: rec.CurrentPrice,
		ClosedAt:   rec.ClosedAt,
	}
}

// SettlementPublisher receives closed auctions; escrow and payout happen downstream.
// Delivery is at least once: an event may arrive again after a failed acknowledgement,
// and consumers key on AuctionID.
type SettlementPublisher interface {
	PublishAuctionClosed(ctx context.Context, event AuctionClosedEvent) error
}
