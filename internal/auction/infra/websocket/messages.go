package websocket

import (
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"            // manual bid
	MessageTypeClientSetProxy     MessageType = "client_set_proxy"      // create or replace a proxy bid
	MessageTypeClientCancelProxy  MessageType = "client_cancel_proxy"   // deactivate a proxy bid
	MessageTypeServerUpdate       MessageType = "server_auction_update" // price moved, broadcast to the auction
	MessageTypeServerError        MessageType = "server_error"          // sent to the offending client only
	MessageTypeServerInitialState MessageType = "server_initial_state"  // sent once after connecting
)

// BaseMessage is embedded by every message; Type selects the payload shape.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id" validate:"required"`
		BidderID  uuid.UUID       `json:"bidder_id" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"required"`
	} `json:"payload"`
}

type ClientSetProxyMessage struct {
	BaseMessage
	Payload struct {
		AuctionID         uuid.UUID           `json:"auction_id" validate:"required"`
		BidderID          uuid.UUID           `json:"bidder_id" validate:"required"`
		MaxAmount         decimal.Decimal     `json:"max_amount" validate:"required"`
		IncrementOverride decimal.NullDecimal `json:"increment_override"`
	} `json:"payload"`
}

type ClientCancelProxyMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID `json:"auction_id" validate:"required"`
		BidderID  uuid.UUID `json:"bidder_id" validate:"required"`
	} `json:"payload"`
}

// BidPayload is one ledger entry as seen by clients.
type BidPayload struct {
	ID       uuid.UUID       `json:"id"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	Origin   string          `json:"origin"`
	PlacedAt time.Time       `json:"placed_at"`
}

func toBidPayloads(bids []*domain.Bid) []BidPayload {
	out := make([]BidPayload, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidPayload{
			ID:       b.ID,
			BidderID: b.BidderID,
			Amount:   b.Amount,
			Origin:   string(b.Origin),
			PlacedAt: b.PlacedAt,
		})
	}
	return out
}

// ServerAuctionUpdateMessage carries the auction state after a mutation and
// the bids that mutation placed, in ledger order.
type ServerAuctionUpdateMessage struct {
	BaseMessage
	Payload struct {
		AuctionID       uuid.UUID       `json:"auction_id"`
		CurrentPrice    decimal.Decimal `json:"current_price"`
		MinimumNextBid  decimal.Decimal `json:"minimum_next_bid"`
		Status          string          `json:"status"`
		EndTime         time.Time       `json:"end_time"`
		BidCount        int             `json:"bid_count"`
		HighestBidderID *uuid.UUID      `json:"highest_bidder_id,omitempty"`
		Bids            []BidPayload    `json:"bids"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	} `json:"payload"`
}

// ServerInitialStateMessage is the full state a client sees when it connects.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload *application.AuctionStateDTO `json:"payload"`
}
