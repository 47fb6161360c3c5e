package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionCloser is the part of the auction service the sweeper drives.
type AuctionCloser interface {
	ListExpired(ctx context.Context) ([]*domain.AuctionRecord, error)
	CloseAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error)
	ListPendingSettlements(ctx context.Context) ([]*domain.AuctionRecord, error)
	RedeliverSettlement(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error)
}

// Notifier is told about every auction the sweeper closes.
type Notifier interface {
	BroadcastAuctionUpdate(ctx context.Context, auctionID uuid.UUID, placed []*domain.Bid)
}

// SweepResult counts what one sweep achieved.
type SweepResult struct {
	Closed      int
	Redelivered int
}

// CloseSweeper periodically closes active auctions whose end time has passed
// and republishes settlement events whose earlier hand-off failed.
type CloseSweeper struct {
	closer   AuctionCloser
	notifier Notifier
	interval time.Duration
}

// NewCloseSweeper builds a sweeper; notifier may be nil.
func NewCloseSweeper(closer AuctionCloser, notifier Notifier, interval time.Duration) *CloseSweeper {
	return &CloseSweeper{closer: closer, notifier: notifier, interval: interval}
}

// Run sweeps every interval until ctx is cancelled.
func (s *CloseSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("Close sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("Close sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Error("Close sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce republishes pending settlements, then closes every expired
// auction. A failure on one auction is logged and does not stop the sweep.
func (s *CloseSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	redelivered, err := s.redeliverPending(ctx)
	res.Redelivered = redelivered
	if err != nil {
		return res, err
	}

	expired, err := s.closer.ListExpired(ctx)
	if err != nil {
		return res, err
	}

	for _, rec := range expired {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		event, err := s.closer.CloseAuction(ctx, rec.ID)
		switch {
		case err == nil:
		case event != nil:
			// closed and committed; the next sweep republishes
			log.Error("Auction closed but settlement publish failed",
				zap.String("auctionID", rec.ID.String()),
				zap.Error(err),
			)
		case errors.Is(err, domain.ErrState):
			// extended by a late bid or closed elsewhere since it was listed
			log.Debug("Auction no longer closable, skipped",
				zap.String("auctionID", rec.ID.String()),
				zap.Error(err),
			)
			continue
		default:
			log.Error("Failed to close auction",
				zap.String("auctionID", rec.ID.String()),
				zap.Error(err),
			)
			continue
		}

		res.Closed++
		log.Info("Auction closed by sweeper",
			zap.String("auctionID", rec.ID.String()),
			zap.String("status", string(event.Status)),
			zap.Stringer("finalPrice", event.FinalPrice),
		)
		if s.notifier != nil {
			s.notifier.BroadcastAuctionUpdate(ctx, rec.ID, nil)
		}
	}
	return res, nil
}

func (s *CloseSweeper) redeliverPending(ctx context.Context) (int, error) {
	pending, err := s.closer.ListPendingSettlements(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if _, err := s.closer.RedeliverSettlement(ctx, rec.ID); err != nil {
			if errors.Is(err, domain.ErrNoPendingSettlement) {
				continue
			}
			log.Warn("Settlement redelivery failed",
				zap.String("auctionID", rec.ID.String()),
				zap.Error(err),
			)
			continue
		}
		delivered++
		log.Info("Settlement redelivered",
			zap.String("auctionID", rec.ID.String()),
			zap.Time("closedAt", rec.ClosedAt),
		)
	}
	return delivered, nil
}
