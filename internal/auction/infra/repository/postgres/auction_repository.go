package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auctionColumns = `id, seller_id, title, description, starting_price, reserve_price, current_price,
        increment_amount, start_time, end_time, time_extension_seconds, status, winner_id, bid_count,
        closed_at, settlement_pending, version, created_at, updated_at`

// AuctionRepository reads and writes auction records.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

// Create inserts a new record; created_at and updated_at come from the column defaults.
func (r *AuctionRepository) Create(ctx context.Context, rec *domain.AuctionRecord) error {
	query := `
        INSERT INTO auctions (id, seller_id, title, description, starting_price, reserve_price, current_price,
            increment_amount, start_time, end_time, time_extension_seconds, status, winner_id, bid_count, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING created_at, updated_at
    `
	return r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.SellerID,
		rec.Title,
		rec.Description,
		rec.StartingPrice,
		rec.ReservePrice,
		rec.CurrentPrice,
		rec.IncrementAmount,
		rec.StartTime,
		rec.EndTime,
		int64(rec.TimeExtension/time.Second),
		string(rec.Status),
		rec.WinnerID,
		rec.BidCount,
		rec.Version,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuctionRecord, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.getOne(ctx, r.pool, query, id)
}

func (r *AuctionRepository) getOne(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.AuctionRecord, error) {
	rec, err := scanAuction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("get auction %s: %w", id, err)
	}
	return rec, nil
}

// update writes rec if the stored version still equals expectedVersion.
func (r *AuctionRepository) update(ctx context.Context, tx pgx.Tx, rec *domain.AuctionRecord, expectedVersion int64) (time.Time, error) {
	query := `
        UPDATE auctions
        SET
            current_price = $3,
            end_time = $4,
            status = $5,
            winner_id = $6,
            bid_count = $7,
            closed_at = $8,
            settlement_pending = $9,
            version = version + 1,
            updated_at = NOW()
        WHERE id = $1 AND version = $2
        RETURNING updated_at
    `
	var updatedAt time.Time
	err := tx.QueryRow(ctx, query,
		rec.ID,
		expectedVersion,
		rec.CurrentPrice,
		rec.EndTime,
		string(rec.Status),
		rec.WinnerID,
		rec.BidCount,
		nullTime(rec.ClosedAt),
		rec.SettlementPending,
	).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, domain.ErrVersionConflict
	}
	return updatedAt, err
}

// GetAuctionsEndingBefore lists active auctions whose end time is at or before t, soonest first.
func (r *AuctionRepository) GetAuctionsEndingBefore(ctx context.Context, t time.Time) ([]*domain.AuctionRecord, error) {
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status = $1 AND end_time <= $2
        ORDER BY end_time ASC
    `
	rows, err := r.pool.Query(ctx, query, string(domain.StatusActive), t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.AuctionRecord
	for rows.Next() {
		rec, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetAuctionsPendingSettlement lists closed auctions whose settlement event
// has not been acknowledged by the publisher, oldest close first.
func (r *AuctionRepository) GetAuctionsPendingSettlement(ctx context.Context) ([]*domain.AuctionRecord, error) {
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE settlement_pending
        ORDER BY closed_at ASC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.AuctionRecord
	for rows.Next() {
		rec, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanAuction(row pgx.Row) (*domain.AuctionRecord, error) {
	rec := &domain.AuctionRecord{}
	var status string
	var extensionSeconds int64
	var closedAt *time.Time

	err := row.Scan(
		&rec.ID,
		&rec.SellerID,
		&rec.Title,
		&rec.Description,
		&rec.StartingPrice,
		&rec.ReservePrice,
		&rec.CurrentPrice,
		&rec.IncrementAmount,
		&rec.StartTime,
		&rec.EndTime,
		&extensionSeconds,
		&status,
		&rec.WinnerID,
		&rec.BidCount,
		&closedAt,
		&rec.SettlementPending,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.Status(status)
	rec.TimeExtension = time.Duration(extensionSeconds) * time.Second
	if closedAt != nil {
		rec.ClosedAt = *closedAt
	}
	return rec, nil
}
