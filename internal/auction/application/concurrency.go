package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/keylock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxAttempts = 3

// ConcurrencyController gives each auction an exclusive mutation scope. Inside the
// scope an optimistic version conflict from the store (another process won the
// race) restarts the whole unit of work from fresh state.
type ConcurrencyController struct {
	locks       *keylock.KeyedMutex
	maxAttempts int
}

func NewConcurrencyController(maxAttempts int) *ConcurrencyController {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ConcurrencyController{
		locks:       keylock.New(),
		maxAttempts: maxAttempts,
	}
}

// Run executes fn while holding the auction scope. fn is retried on
// domain.ErrConcurrencyConflict up to maxAttempts times; any other result is final.
func (c *ConcurrencyController) Run(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context) error) error {
	unlock, err := c.locks.Lock(ctx, auctionID.String())
	if err != nil {
		return fmt.Errorf("acquire auction scope %s: %w", auctionID, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= c.maxAttempts {
			log.Warn("Giving up after repeated concurrency conflicts",
				zap.String("auctionID", auctionID.String()),
				zap.Int("attempts", attempt),
			)
			return err
		}
		log.Warn("Concurrency conflict, retrying from fresh state",
			zap.String("auctionID", auctionID.String()),
			zap.Int("attempt", attempt),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}
