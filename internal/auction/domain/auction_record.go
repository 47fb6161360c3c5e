package domain

import (
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Status is the lifecycle state of an auction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
	StatusSold      Status = "sold"
)

// transitions is the whole state machine; anything not listed here is illegal.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled},
	StatusActive:  {StatusClosed, StatusSold, StatusCancelled},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true for statuses with no outgoing transition.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// AuctionRecord is the single source of truth for an auction price and status.
type AuctionRecord struct {
	ID              uuid.UUID
	SellerID        uuid.UUID
	Title           string
	Description     string
	StartingPrice   decimal.Decimal
	ReservePrice    decimal.NullDecimal
	CurrentPrice    decimal.Decimal
	IncrementAmount decimal.Decimal
	StartTime       time.Time
	EndTime         time.Time
	TimeExtension   time.Duration // soft close window, zero disables it
	Status          Status
	WinnerID        uuid.NullUUID
	BidCount        int
	ClosedAt        time.Time
	// SettlementPending is set by Close and cleared once the settlement publisher accepted the event.
	SettlementPending bool
	// Version increases on every persisted mutation; the store rejects saves made from a stale version.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAuctionRecord creates a pending auction. currentPrice starts at startingPrice.
func NewAuctionRecord(id, sellerID uuid.UUID, title string, startingPrice, increment decimal.Decimal,
	reserve decimal.NullDecimal, startTime, endTime time.Time, timeExtension time.Duration) (*AuctionRecord, error) {
	if !startingPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !increment.IsPositive() {
		return nil, ErrInvalidIncrement
	}
	if reserve.Valid && !reserve.Decimal.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !endTime.After(startTime) {
		return nil, ErrInvalidAuctionWindow
	}
	return &AuctionRecord{
		ID:              id,
		SellerID:        sellerID,
		Title:           title,
		StartingPrice:   startingPrice,
		ReservePrice:    reserve,
		CurrentPrice:    startingPrice,
		IncrementAmount: increment,
		StartTime:       startTime,
		EndTime:         endTime,
		TimeExtension:   timeExtension,
		Status:          StatusPending,
	}, nil
}

// HasEnded reports whether the bidding window is over at now.
func (a *AuctionRecord) HasEnded(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// CheckBiddable returns a state error unless the auction accepts bids at now.
func (a *AuctionRecord) CheckBiddable(now time.Time) error {
	if a.Status != StatusActive {
		return ErrAuctionNotActive
	}
	if a.HasEnded(now) {
		return ErrAuctionEnded
	}
	return nil
}

// MinimumNextBid is startingPrice while no bid exists, currentPrice+increment afterwards.
func (a *AuctionRecord) MinimumNextBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartingPrice
	}
	return a.CurrentPrice.Add(a.IncrementAmount)
}

// ReserveMet is true when there is no reserve or the current price reaches it.
func (a *AuctionRecord) ReserveMet() bool {
	return !a.ReservePrice.Valid || a.CurrentPrice.GreaterThanOrEqual(a.ReservePrice.Decimal)
}

// RaisePrice moves currentPrice to newAmount for an accepted bid.
// The opening bid may equal the starting price; every later one must be strictly higher.
func (a *AuctionRecord) RaisePrice(newAmount decimal.Decimal, now time.Time) error {
	if err := a.CheckBiddable(now); err != nil {
		return err
	}
	opening := a.BidCount == 0 && newAmount.Equal(a.CurrentPrice)
	if !opening && newAmount.LessThanOrEqual(a.CurrentPrice) {
		return ErrPriceNotIncreasing
	}

	a.CurrentPrice = newAmount
	a.BidCount++
	a.UpdatedAt = now

	if a.TimeExtension > 0 && now.Add(a.TimeExtension).After(a.EndTime) {
		originalEndTime := a.EndTime
		a.EndTime = now.Add(a.TimeExtension)
		log.Info("Auction time extended",
			zap.String("auctionID", a.ID.String()),
			zap.Time("originalEndTime", originalEndTime),
			zap.Time("newEndTime", a.EndTime),
		)
	}
	return nil
}

func (a *AuctionRecord) transition(next Status, now time.Time) error {
	if !a.Status.CanTransitionTo(next) {
		log.Warn("Rejected auction status transition",
			zap.String("auctionID", a.ID.String()),
			zap.String("from", string(a.Status)),
			zap.String("to", string(next)),
		)
		return ErrIllegalTransition
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

// Activate opens the auction for bidding.
func (a *AuctionRecord) Activate(now time.Time) error {
	return a.transition(StatusActive, now)
}

// Close ends an active auction, Sold when a winner is given, Closed otherwise.
func (a *AuctionRecord) Close(winnerID uuid.NullUUID, now time.Time) error {
	next := StatusClosed
	if winnerID.Valid {
		next = StatusSold
	}
	if err := a.transition(next, now); err != nil {
		return err
	}
	a.WinnerID = winnerID
	a.ClosedAt = now
	a.SettlementPending = true
	log.Info("Auction closed",
		zap.String("auctionID", a.ID.String()),
		zap.String("status", string(a.Status)),
		zap.Stringer("finalPrice", a.CurrentPrice),
	)
	return nil
}

// MarkSettled records that the closed event reached settlement.
func (a *AuctionRecord) MarkSettled(now time.Time) error {
	if !a.SettlementPending {
		return ErrNoPendingSettlement
	}
	a.SettlementPending = false
	a.UpdatedAt = now
	return nil
}

// Cancel is allowed from Pending or Active only.
func (a *AuctionRecord) Cancel(now time.Time) error {
	return a.transition(StatusCancelled, now)
}
