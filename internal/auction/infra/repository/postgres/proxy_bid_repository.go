package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const proxyColumns = `auction_id, bidder_id, max_amount, increment_override, active, created_at, updated_at`

// ProxyBidRepository stores one standing authorization per (auction, bidder).
type ProxyBidRepository struct {
	pool *pgxpool.Pool
}

func NewProxyBidRepository(pool *pgxpool.Pool) *ProxyBidRepository {
	return &ProxyBidRepository{pool: pool}
}

func (r *ProxyBidRepository) upsert(ctx context.Context, tx pgx.Tx, proxies []*domain.ProxyBid) error {
	if len(proxies) == 0 {
		return nil
	}
	query := `
        INSERT INTO proxy_bids (auction_id, bidder_id, max_amount, increment_override, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (auction_id, bidder_id) DO UPDATE
        SET
            max_amount = EXCLUDED.max_amount,
            increment_override = EXCLUDED.increment_override,
            active = EXCLUDED.active,
            created_at = EXCLUDED.created_at,
            updated_at = EXCLUDED.updated_at
    `
	batch := &pgx.Batch{}
	for _, p := range proxies {
		batch.Queue(query, p.AuctionID, p.BidderID, p.MaxAmount, p.IncrementOverride, p.Active, p.CreatedAt, p.UpdatedAt)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *ProxyBidRepository) forAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.ProxyBid, error) {
	query := `SELECT ` + proxyColumns + ` FROM proxy_bids WHERE auction_id = $1`
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proxies []*domain.ProxyBid
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return proxies, nil
}

func (r *ProxyBidRepository) GetProxyBid(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.ProxyBid, error) {
	query := `SELECT ` + proxyColumns + ` FROM proxy_bids WHERE auction_id = $1 AND bidder_id = $2`
	p, err := scanProxy(r.pool.QueryRow(ctx, query, auctionID, bidderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proxy bid %s/%s: %w", auctionID, bidderID, err)
	}
	return p, nil
}

func scanProxy(row pgx.Row) (*domain.ProxyBid, error) {
	p := &domain.ProxyBid{}
	err := row.Scan(
		&p.AuctionID,
		&p.BidderID,
		&p.MaxAmount,
		&p.IncrementOverride,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
