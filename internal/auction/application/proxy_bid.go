package application

import (
	"context"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SetProxyBidDTO is the input for creating or replacing a standing authorization.
type SetProxyBidDTO struct {
	AuctionID         uuid.UUID
	BidderID          uuid.UUID
	MaxAmount         decimal.Decimal
	IncrementOverride decimal.NullDecimal
}

// SetProxyBidUseCase upserts a proxy and immediately lets it contest the standing price.
type SetProxyBidUseCase struct {
	engine *bidEngine
}

func NewSetProxyBidUseCase(engine *bidEngine) *SetProxyBidUseCase {
	return &SetProxyBidUseCase{engine: engine}
}

func (uc *SetProxyBidUseCase) Execute(ctx context.Context, cmd SetProxyBidDTO) (*BidResolution, error) {
	log.Info("Executing SetProxyBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("maxAmount", cmd.MaxAmount),
	)

	var cascade []*domain.Bid
	agg, err := uc.engine.mutate(ctx, "set proxy bid", cmd.AuctionID, func(a *domain.Auction, now time.Time) error {
		rec := a.Record
		if err := rec.CheckBiddable(now); err != nil {
			return err
		}
		if cmd.BidderID == rec.SellerID {
			return domain.ErrSellerCannotBid
		}
		if _, err := a.Proxies.Upsert(cmd.BidderID, cmd.MaxAmount, cmd.IncrementOverride, rec.CurrentPrice, now); err != nil {
			return err
		}

		cascade = nil
		if a.Ledger.Len() == 0 {
			// nothing to contest yet: the proxy opens the auction at the starting price
			if err := rec.RaisePrice(rec.StartingPrice, now); err != nil {
				return err
			}
			opening := domain.NewBid(rec.ID, cmd.BidderID, rec.StartingPrice, now, domain.OriginProxyCascade)
			a.Ledger.Append(opening)
			cascade = append(cascade, opening)
		}

		generated, err := resolveCascade(a, now)
		if err != nil {
			return err
		}
		cascade = append(cascade, generated...)
		return nil
	})
	if err != nil {
		log.Warn("SetProxyBidUseCase: proxy bid rejected",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return newResolution(agg, nil, cascade), nil
}

// CancelAutoBidUseCase switches a proxy off. Bids it already placed stay in the ledger.
type CancelAutoBidUseCase struct {
	engine *bidEngine
}

func NewCancelAutoBidUseCase(engine *bidEngine) *CancelAutoBidUseCase {
	return &CancelAutoBidUseCase{engine: engine}
}

func (uc *CancelAutoBidUseCase) Execute(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	_, err := uc.engine.mutate(ctx, "cancel auto bid", auctionID, func(a *domain.Auction, now time.Time) error {
		if a.Proxies.Get(bidderID) == nil {
			return domain.ErrProxyBidNotFound
		}
		a.Proxies.Deactivate(bidderID, now)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("CancelAutoBidUseCase: proxy bid deactivated",
		zap.String("auctionID", auctionID.String()),
		zap.String("bidderID", bidderID.String()),
	)
	return nil
}
