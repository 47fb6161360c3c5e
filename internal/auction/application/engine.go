package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Clock is injected so tests control time.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// BidResolution describes the state an operation left the auction in.
type BidResolution struct {
	AuctionID uuid.UUID
	// Accepted is the manual bid, nil for proxy operations.
	Accepted *domain.Bid
	// Cascade holds the proxy bids generated by the operation, in ledger order.
	Cascade         []*domain.Bid
	CurrentPrice    decimal.Decimal
	HighestBidderID uuid.NullUUID
	Status          domain.Status
	EndTime         time.Time
}

func newResolution(a *domain.Auction, accepted *domain.Bid, cascade []*domain.Bid) *BidResolution {
	res := &BidResolution{
		AuctionID:    a.Record.ID,
		Accepted:     accepted,
		Cascade:      cascade,
		CurrentPrice: a.Record.CurrentPrice,
		Status:       a.Record.Status,
		EndTime:      a.Record.EndTime,
	}
	if top := a.Ledger.HighestBid(); top != nil {
		res.HighestBidderID = uuid.NullUUID{UUID: top.BidderID, Valid: true}
	}
	return res
}

// bidEngine is the shared core of every mutating use case.
type bidEngine struct {
	store      domain.AuctionStore
	controller *ConcurrencyController
	clock      Clock
}

func newBidEngine(store domain.AuctionStore, controller *ConcurrencyController, clock Clock) *bidEngine {
	if clock == nil {
		clock = SystemClock
	}
	return &bidEngine{store: store, controller: controller, clock: clock}
}

// mutate loads a fresh aggregate inside the auction scope, applies fn and saves
// the result in one store call. Nothing is persisted when fn fails, and a
// version conflict replays fn against newly loaded state.
func (e *bidEngine) mutate(ctx context.Context, op string, auctionID uuid.UUID,
	fn func(a *domain.Auction, now time.Time) error) (*domain.Auction, error) {
	var result *domain.Auction

	err := e.controller.Run(ctx, auctionID, func(ctx context.Context) error {
		agg, err := e.store.Load(ctx, auctionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConcurrencyConflict) {
				return err
			}
			return systemError(op, auctionID, err)
		}

		if err := fn(agg, e.clock()); err != nil {
			return err
		}

		if err := e.store.Save(ctx, agg); err != nil {
			if errors.Is(err, domain.ErrConcurrencyConflict) {
				return err
			}
			return systemError(op, auctionID, err)
		}
		result = agg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, auctionID, err)
	}
	return result, nil
}

// systemError marks a storage failure and logs it for operators.
func systemError(op string, auctionID uuid.UUID, err error) error {
	log.Error("Storage failure, operation aborted",
		zap.String("op", op),
		zap.String("auctionID", auctionID.String()),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", domain.ErrSystem, err)
}
