package application

import (
	"fmt"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxContestSteps caps the explicit steps settleContest plays after skipping
// the rounds in which neither proxy nears its ceiling.
const maxContestSteps = 64

// resolveCascade places automatic counter-bids after an accepted bid until no
// eligible proxy is left, and returns the bids it generated.
//
// The strongest proxy other than the standing bidder bids next. When a second
// authorization is still above the price, the two would trade one increment at
// a time; settleContest plays that exchange out arithmetically and only the
// bid that holds the lead at its end is recorded. Every proxy the contest
// leaves at or below the final price is then swept, so the loop ends within
// len(proxies)+1 iterations and a manual bid yields at most one cascade bid.
func resolveCascade(a *domain.Auction, now time.Time) ([]*domain.Bid, error) {
	rec := a.Record
	var placed []*domain.Bid
	bound := len(a.Proxies.All()) + 1

	for step := 0; ; step++ {
		if step > bound {
			return nil, fmt.Errorf("%w: cascade for auction %s exceeded %d iterations", domain.ErrSystem, rec.ID, bound)
		}

		price := rec.CurrentPrice
		for _, id := range a.Proxies.DeactivateExhausted(price, now) {
			log.Info("Proxy bid exhausted",
				zap.String("auctionID", rec.ID.String()),
				zap.String("bidderID", id.String()),
				zap.Stringer("price", price),
			)
		}

		last := a.Ledger.Latest()
		if last == nil {
			return placed, nil
		}
		candidates := a.Proxies.ActiveProxiesAbove(price, last.BidderID)
		if len(candidates) == 0 {
			return placed, nil
		}
		selected := candidates[0]

		leader, amount := selected, clampToMax(price.Add(selected.EffectiveIncrement(rec.IncrementAmount)), selected)
		// strongest authorization other than selected; it may be the standing bidder's own
		if others := a.Proxies.ActiveProxiesAbove(price, selected.BidderID); len(others) > 0 {
			rival := others[0]
			leader, amount = settleContest(price, rec.IncrementAmount, selected, rival)
			log.Info("Proxy contest settled",
				zap.String("auctionID", rec.ID.String()),
				zap.String("leaderID", leader.BidderID.String()),
				zap.String("opened", selected.BidderID.String()),
				zap.String("answered", rival.BidderID.String()),
				zap.Stringer("price", amount),
			)
		}

		bid, err := placeProxyBid(a, leader, amount, now)
		if err != nil {
			return nil, err
		}
		placed = append(placed, bid)
	}
}

// settleContest replays the one-increment exchange between first, who bids
// next, and second from price. It returns the proxy holding the lead when the
// next bidder can no longer exceed the price, and that price. Whole rounds in
// which both proxies stay below their ceilings are skipped in one step.
//
// On equal ceilings the earlier authorization keeps the lead at the shared
// ceiling, whichever of the two reached it first.
func settleContest(price, auctionIncrement decimal.Decimal, first, second *domain.ProxyBid) (*domain.ProxyBid, decimal.Decimal) {
	incFirst := first.EffectiveIncrement(auctionIncrement)
	incSecond := second.EffectiveIncrement(auctionIncrement)
	round := incFirst.Add(incSecond)

	// rounds r with price+r*round+incFirst < first.Max and price+(r+1)*round < second.Max
	safeFirst := first.MaxAmount.Sub(price).Sub(incFirst).Div(round).Ceil()
	safeSecond := second.MaxAmount.Sub(price).Sub(round).Div(round).Ceil()
	rounds := decimal.Min(safeFirst, safeSecond).Sub(decimal.NewFromInt(1))

	var leader *domain.ProxyBid
	if rounds.IsPositive() {
		price = price.Add(rounds.Mul(round))
		leader = second
	}

	bidder, waiting := first, second
	for i := 0; i < maxContestSteps && bidder.MaxAmount.GreaterThan(price); i++ {
		price = clampToMax(price.Add(bidder.EffectiveIncrement(auctionIncrement)), bidder)
		leader = bidder
		bidder, waiting = waiting, bidder
	}
	if leader == nil {
		leader = waiting
	}

	// bidder could not answer; it only outranks the leader on a shared ceiling
	if bidder.Outranks(leader) {
		leader = bidder
	}
	return leader, price
}

func clampToMax(amount decimal.Decimal, p *domain.ProxyBid) decimal.Decimal {
	if amount.GreaterThan(p.MaxAmount) {
		return p.MaxAmount
	}
	return amount
}

// placeProxyBid records a cascade bid for p, retiring the proxy when it bid its ceiling.
func placeProxyBid(a *domain.Auction, p *domain.ProxyBid, amount decimal.Decimal, now time.Time) (*domain.Bid, error) {
	if err := a.Record.RaisePrice(amount, now); err != nil {
		return nil, err
	}
	bid := domain.NewBid(a.Record.ID, p.BidderID, amount, now, domain.OriginProxyCascade)
	a.Ledger.Append(bid)

	exhausted := amount.GreaterThanOrEqual(p.MaxAmount)
	if exhausted {
		a.Proxies.Deactivate(p.BidderID, now)
	}
	log.Info("Cascade bid placed",
		zap.String("auctionID", bid.AuctionID.String()),
		zap.String("bidID", bid.ID.String()),
		zap.String("bidderID", bid.BidderID.String()),
		zap.Stringer("amount", bid.Amount),
		zap.Bool("exhausted", exhausted),
	)
	return bid, nil
}
