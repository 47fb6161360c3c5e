package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO carries what a seller provides; the auction starts Pending.
type CreateAuctionDTO struct {
	SellerID        uuid.UUID
	Title           string
	Description     string
	StartingPrice   decimal.Decimal
	IncrementAmount decimal.Decimal
	ReservePrice    decimal.NullDecimal
	StartTime       time.Time
	EndTime         time.Time
	TimeExtension   time.Duration
}

type CreateAuctionUseCase struct {
	store domain.AuctionStore
}

func NewCreateAuctionUseCase(store domain.AuctionStore) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{store: store}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*domain.AuctionRecord, error) {
	rec, err := domain.NewAuctionRecord(uuid.New(), cmd.SellerID, cmd.Title, cmd.StartingPrice, cmd.IncrementAmount,
		cmd.ReservePrice, cmd.StartTime, cmd.EndTime, cmd.TimeExtension)
	if err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}
	rec.Description = cmd.Description

	if err := uc.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create auction: %w", systemError("create auction", rec.ID, err))
	}
	log.Info("Auction created",
		zap.String("auctionID", rec.ID.String()),
		zap.String("sellerID", rec.SellerID.String()),
		zap.Time("endTime", rec.EndTime),
	)
	return rec, nil
}

// TransitionUseCase covers the externally triggered Activate and Cancel transitions.
type TransitionUseCase struct {
	engine *bidEngine
}

func NewTransitionUseCase(engine *bidEngine) *TransitionUseCase {
	return &TransitionUseCase{engine: engine}
}

func (uc *TransitionUseCase) Activate(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error) {
	agg, err := uc.engine.mutate(ctx, "activate auction", auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Record.Activate(now)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Auction activated", zap.String("auctionID", auctionID.String()))
	return agg.Record, nil
}

func (uc *TransitionUseCase) Cancel(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error) {
	agg, err := uc.engine.mutate(ctx, "cancel auction", auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Record.Cancel(now)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Auction cancelled", zap.String("auctionID", auctionID.String()))
	return agg.Record, nil
}

// CloseAuctionUseCase ends an expired auction and hands the outcome to settlement.
// The close commits with a pending-settlement flag that is cleared only after
// the publisher accepted the event, so a failed hand-off is retried by Redeliver.
type CloseAuctionUseCase struct {
	engine    *bidEngine
	publisher domain.SettlementPublisher
}

func NewCloseAuctionUseCase(engine *bidEngine, publisher domain.SettlementPublisher) *CloseAuctionUseCase {
	return &CloseAuctionUseCase{engine: engine, publisher: publisher}
}

func (uc *CloseAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error) {
	agg, err := uc.engine.mutate(ctx, "close auction", auctionID, func(a *domain.Auction, now time.Time) error {
		rec := a.Record
		if rec.Status != domain.StatusActive {
			return domain.ErrAuctionNotActive
		}
		if !rec.HasEnded(now) {
			return domain.ErrAuctionNotEnded
		}

		var winner uuid.NullUUID
		if top := a.Ledger.HighestBid(); top != nil && rec.ReserveMet() {
			winner = uuid.NullUUID{UUID: top.BidderID, Valid: true}
		}
		return rec.Close(winner, now)
	})
	if err != nil {
		return nil, err
	}

	// published only after the close is durable
	return uc.deliver(ctx, domain.NewAuctionClosedEvent(agg.Record))
}

// Redeliver republishes the settlement event of a closed auction whose earlier
// hand-off failed. It returns ErrNoPendingSettlement once the event was accepted.
func (uc *CloseAuctionUseCase) Redeliver(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error) {
	rec, err := getRecord(ctx, uc.engine.store, auctionID)
	if err != nil {
		return nil, err
	}
	if !rec.SettlementPending {
		return nil, fmt.Errorf("redeliver settlement %s: %w", auctionID, domain.ErrNoPendingSettlement)
	}
	return uc.deliver(ctx, domain.NewAuctionClosedEvent(rec))
}

// ListPending returns closed auctions whose settlement event is not yet acknowledged.
func (uc *CloseAuctionUseCase) ListPending(ctx context.Context) ([]*domain.AuctionRecord, error) {
	recs, err := uc.engine.store.GetAuctionsPendingSettlement(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending settlements: %w: %w", domain.ErrSystem, err)
	}
	return recs, nil
}

func (uc *CloseAuctionUseCase) deliver(ctx context.Context, event domain.AuctionClosedEvent) (*domain.AuctionClosedEvent, error) {
	auctionID := event.AuctionID
	if err := uc.publisher.PublishAuctionClosed(ctx, event); err != nil {
		return &event, fmt.Errorf("close auction %s: settlement hand-off: %w", auctionID, systemError("publish settlement", auctionID, err))
	}

	_, err := uc.engine.mutate(ctx, "acknowledge settlement", auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Record.MarkSettled(now)
	})
	if err != nil && !errors.Is(err, domain.ErrNoPendingSettlement) {
		// the flag stays set and the event goes out again on a later sweep
		log.Warn("Settlement published but not acknowledged",
			zap.String("auctionID", auctionID.String()),
			zap.Error(err),
		)
	}
	return &event, nil
}
