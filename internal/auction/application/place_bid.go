package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBidDTO is the input of a manual bid.
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// PlaceBidUseCase validates a manual bid, appends it and resolves the proxy cascade it triggers.
type PlaceBidUseCase struct {
	engine *bidEngine
}

func NewPlaceBidUseCase(engine *bidEngine) *PlaceBidUseCase {
	return &PlaceBidUseCase{engine: engine}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*BidResolution, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("amount", cmd.Amount),
	)

	var accepted *domain.Bid
	var cascade []*domain.Bid

	agg, err := uc.engine.mutate(ctx, "place bid", cmd.AuctionID, func(a *domain.Auction, now time.Time) error {
		bid, err := acceptManualBid(a, cmd.BidderID, cmd.Amount, now)
		if err != nil {
			return err
		}
		generated, err := resolveCascade(a, now)
		if err != nil {
			return err
		}
		accepted, cascade = bid, generated
		return nil
	})
	if err != nil {
		log.Warn("PlaceBidUseCase: bid rejected",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
			zap.Stringer("amount", cmd.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("PlaceBidUseCase: bid accepted",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidID", accepted.ID.String()),
		zap.Int("cascadeBids", len(cascade)),
		zap.Stringer("currentPrice", agg.Record.CurrentPrice),
	)
	return newResolution(agg, accepted, cascade), nil
}

// acceptManualBid runs the manual bid checks in order: state, authorization, amount.
func acceptManualBid(a *domain.Auction, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) (*domain.Bid, error) {
	rec := a.Record
	if err := rec.CheckBiddable(now); err != nil {
		return nil, err
	}
	if bidderID == rec.SellerID {
		return nil, domain.ErrSellerCannotBid
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if minimum := rec.MinimumNextBid(); amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: minimum is %s", domain.ErrBidAmountTooLow, minimum)
	}

	if err := rec.RaisePrice(amount, now); err != nil {
		return nil, err
	}
	bid := domain.NewBid(rec.ID, bidderID, amount, now, domain.OriginManual)
	a.Ledger.Append(bid)
	return bid, nil
}
