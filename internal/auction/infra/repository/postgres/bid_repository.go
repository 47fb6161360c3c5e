package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bidColumns = `id, auction_id, bidder_id, amount, placed_at, origin, seq`

const uniqueViolation = "23505"

// BidRepository is the append-only bid ledger table.
type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// insert appends bids inside tx. A duplicate (auction_id, seq) means another
// writer appended first and surfaces as domain.ErrVersionConflict.
func (r *BidRepository) insert(ctx context.Context, tx pgx.Tx, bids []*domain.Bid) error {
	if len(bids) == 0 {
		return nil
	}
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at, origin, seq)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	batch := &pgx.Batch{}
	for _, b := range bids {
		batch.Queue(query, b.ID, b.AuctionID, b.BidderID, b.Amount, b.PlacedAt, string(b.Origin), b.Seq)
	}
	err := tx.SendBatch(ctx, batch).Close()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrVersionConflict
	}
	return err
}

// ledger returns the auction bids in append order.
func (r *BidRepository) ledger(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 ORDER BY seq ASC`
	return r.list(ctx, query, auctionID)
}

// BidsForAuction is ranked by amount desc, then placed_at asc.
func (r *BidRepository) BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC, placed_at ASC, seq ASC
    `
	return r.list(ctx, query, auctionID)
}

// BidsForBidder spans every auction, newest first.
func (r *BidRepository) BidsForBidder(ctx context.Context, bidderID uuid.UUID) ([]*domain.Bid, error) {
	query := `SELECT ` + bidColumns + `
        FROM bids
        WHERE bidder_id = $1
        ORDER BY placed_at DESC, seq DESC
    `
	return r.list(ctx, query, bidderID)
}

func (r *BidRepository) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC, placed_at ASC, seq ASC
        LIMIT 1
    `
	bid, err := scanBid(r.pool.QueryRow(ctx, query, auctionID))
	if err != nil {
		// no bids yet
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("highest bid %s: %w", auctionID, err)
	}
	return bid, nil
}

func (r *BidRepository) list(ctx context.Context, query string, arg uuid.UUID) ([]*domain.Bid, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := []*domain.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	var origin string
	err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&bid.PlacedAt,
		&origin,
		&bid.Seq,
	)
	if err != nil {
		return nil, err
	}
	bid.Origin = domain.BidOrigin(origin)
	return bid, nil
}
