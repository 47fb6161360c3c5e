package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.AuctionStore on PostgreSQL.
type Store struct {
	*AuctionRepository
	*BidRepository
	*ProxyBidRepository
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		AuctionRepository:  NewAuctionRepository(pool),
		BidRepository:      NewBidRepository(pool),
		ProxyBidRepository: NewProxyBidRepository(pool),
		pool:               pool,
	}
}

// Load reads the record, its ledger and its proxies. The three reads are not
// isolated from concurrent writers; Save's version check rejects anything
// computed from a torn read.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.ledger(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load bids %s: %w", id, err)
	}
	proxies, err := s.forAuction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load proxy bids %s: %w", id, err)
	}
	if int64(len(bids)) != int64(rec.BidCount) {
		return nil, domain.ErrVersionConflict
	}
	return domain.NewAuction(rec, bids, proxies), nil
}

// Save writes the record, the pending bids and the changed proxies in one transaction.
func (s *Store) Save(ctx context.Context, a *domain.Auction) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error("Failed to rollback auction save", zap.String("auctionID", a.Record.ID.String()), zap.Error(rbErr))
			}
		}
	}()

	rec := a.Record
	updatedAt, err := s.update(ctx, tx, rec, rec.Version)
	if err != nil {
		return err
	}
	if err = s.insert(ctx, tx, a.Ledger.Pending()); err != nil {
		return err
	}
	if err = s.upsert(ctx, tx, a.Proxies.Changed()); err != nil {
		return fmt.Errorf("upsert proxy bids: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	rec.Version++
	rec.UpdatedAt = updatedAt
	a.Ledger.MarkCommitted()
	a.Proxies.MarkCommitted()
	return nil
}
