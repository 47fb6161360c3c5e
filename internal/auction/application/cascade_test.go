package application

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// openedAuction builds an active aggregate where opener already bid the starting price of 100.
func openedAuction(t *testing.T, opener uuid.UUID, proxies ...*domain.ProxyBid) *domain.Auction {
	t.Helper()
	rec, err := domain.NewAuctionRecord(uuid.New(), uuid.New(), "lot", d("100"), d("10"),
		decimal.NullDecimal{}, t0, t0.Add(time.Hour), 0)
	require.NoError(t, err)
	require.NoError(t, rec.Activate(t0))
	require.NoError(t, rec.RaisePrice(d("100"), t0))

	opening := domain.NewBid(rec.ID, opener, d("100"), t0, domain.OriginManual)
	opening.ID = uuid.New()
	opening.Seq = 1
	for _, p := range proxies {
		p.AuctionID = rec.ID
	}
	return domain.NewAuction(rec, []*domain.Bid{opening}, proxies)
}

func standing(bidderID uuid.UUID, max string, createdAt time.Time) *domain.ProxyBid {
	return &domain.ProxyBid{BidderID: bidderID, MaxAmount: d(max), Active: true, CreatedAt: createdAt, UpdatedAt: createdAt}
}

func manualBid(t *testing.T, a *domain.Auction, bidderID uuid.UUID, amount string) []*domain.Bid {
	t.Helper()
	now := t0.Add(time.Minute)
	_, err := acceptManualBid(a, bidderID, d(amount), now)
	require.NoError(t, err)
	placed, err := resolveCascade(a, now)
	require.NoError(t, err)
	return placed
}

func TestResolveCascade_NoProxies(t *testing.T) {
	a := openedAuction(t, uuid.New())
	placed := manualBid(t, a, uuid.New(), "110")
	require.Empty(t, placed)
	requireAmount(t, "110", a.Record.CurrentPrice)
}

func TestResolveCascade_SettlesWhereStepwiseBiddingStops(t *testing.T) {
	tests := []struct {
		name      string
		maxes     []string
		wantPrice string
		wantLead  int // index into maxes, -1 for the manual bidder
	}{
		{name: "single_proxy_answers_one_increment", maxes: []string{"300"}, wantPrice: "120", wantLead: 0},
		{name: "single_proxy_clamped", maxes: []string{"115"}, wantPrice: "115", wantLead: 0},
		{name: "proxy_below_manual_bid_stays_silent", maxes: []string{"110"}, wantPrice: "110", wantLead: -1},
		{name: "two_proxies_stronger_lands_on_weaker_ceiling", maxes: []string{"200", "250"}, wantPrice: "200", wantLead: 1},
		{name: "two_proxies_one_step_over_weaker_ceiling", maxes: []string{"205", "250"}, wantPrice: "215", wantLead: 1},
		{name: "two_proxies_close_ceilings", maxes: []string{"245", "250"}, wantPrice: "250", wantLead: 1},
		{name: "equal_ceilings_earliest_wins", maxes: []string{"250", "250"}, wantPrice: "250", wantLead: 0},
		{name: "many_proxies", maxes: []string{"130", "500", "170", "420", "150"}, wantPrice: "420", wantLead: 1},
		{name: "many_proxies_weaker_bids_last", maxes: []string{"130", "500", "170", "415", "150"}, wantPrice: "425", wantLead: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bidders := make([]uuid.UUID, len(tc.maxes))
			proxies := make([]*domain.ProxyBid, len(tc.maxes))
			for i, m := range tc.maxes {
				bidders[i] = uuid.New()
				proxies[i] = standing(bidders[i], m, t0.Add(time.Duration(i)*time.Second))
			}
			a := openedAuction(t, uuid.New(), proxies...)
			manual := uuid.New()

			placed := manualBid(t, a, manual, "110")

			require.LessOrEqual(t, len(placed), len(tc.maxes))
			requireAmount(t, tc.wantPrice, a.Record.CurrentPrice)
			want := manual
			if tc.wantLead >= 0 {
				want = bidders[tc.wantLead]
			}
			require.Equal(t, want, a.Ledger.HighestBid().BidderID)
		})
	}
}

func TestResolveCascade_LeaderProxyAnswersWithoutChallengerBid(t *testing.T) {
	leader, challenger := uuid.New(), uuid.New()
	a := openedAuction(t, uuid.New(),
		standing(leader, "300", t0),
		standing(challenger, "200", t0.Add(time.Second)),
	)

	// the leader raises manually while also holding the strongest proxy
	placed := manualBid(t, a, leader, "150")

	require.Len(t, placed, 1)
	require.Equal(t, leader, placed[0].BidderID)
	requireAmount(t, "210", a.Record.CurrentPrice)
	require.False(t, a.Proxies.IsActive(challenger))
	require.True(t, a.Proxies.IsActive(leader))
	require.Empty(t, a.Ledger.BidsForBidder(challenger))
}

func TestResolveCascade_TieBreakDeterministic(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	for run := 0; run < 50; run++ {
		a := openedAuction(t, uuid.New(),
			standing(second, "200", t0.Add(2*time.Second)),
			standing(first, "200", t0.Add(time.Second)),
		)
		manualBid(t, a, uuid.New(), "110")

		top := a.Ledger.HighestBid()
		require.Equal(t, first, top.BidderID, "run %d", run)
		requireAmount(t, "200", top.Amount)
		require.False(t, a.Proxies.IsActive(first))
		require.False(t, a.Proxies.IsActive(second))
	}
}

func TestResolveCascade_TerminationBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 40; n++ {
		t.Run(fmt.Sprintf("proxies_%d", n), func(t *testing.T) {
			proxies := make([]*domain.ProxyBid, n)
			for i := range proxies {
				ceiling := decimal.NewFromInt(int64(111 + rng.Intn(2000)))
				proxies[i] = &domain.ProxyBid{
					BidderID:  uuid.New(),
					MaxAmount: ceiling,
					Active:    true,
					CreatedAt: t0.Add(time.Duration(rng.Intn(n)) * time.Second),
				}
				if rng.Intn(3) == 0 {
					proxies[i].IncrementOverride = decimal.NewNullDecimal(decimal.NewFromInt(int64(1 + rng.Intn(30))))
				}
			}
			a := openedAuction(t, uuid.New(), proxies...)

			placed := manualBid(t, a, uuid.New(), "110")

			require.LessOrEqual(t, len(placed), n)
			prev := d("110")
			for _, b := range placed {
				require.True(t, b.Amount.GreaterThan(prev))
				p := a.Proxies.Get(b.BidderID)
				require.NotNil(t, p)
				require.True(t, b.Amount.LessThanOrEqual(p.MaxAmount))
				prev = b.Amount
			}
			require.Equal(t, a.Record.BidCount, a.Ledger.Len())
			// nobody but the leader is still authorized above the final price
			require.Empty(t, a.Proxies.ActiveProxiesAbove(a.Record.CurrentPrice, a.Ledger.Latest().BidderID))
		})
	}
}

func withIncrement(p *domain.ProxyBid, increment string) *domain.ProxyBid {
	p.IncrementOverride = decimal.NewNullDecimal(d(increment))
	return p
}

func TestResolveCascade_IncrementOverrideInContest(t *testing.T) {
	tests := []struct {
		name       string
		strong     *domain.ProxyBid
		weak       *domain.ProxyBid
		wantPrice  string
		wantStrong bool // strong proxy keeps its authorization
	}{
		{
			// one 100 step from 110 already clears the weaker ceiling
			name:       "large_override_on_leader",
			strong:     withIncrement(standing(uuid.New(), "300", t0), "100"),
			weak:       standing(uuid.New(), "200", t0.Add(time.Second)),
			wantPrice:  "210",
			wantStrong: true,
		},
		{
			name:       "override_on_challenger",
			strong:     standing(uuid.New(), "300", t0),
			weak:       withIncrement(standing(uuid.New(), "200", t0.Add(time.Second)), "50"),
			wantPrice:  "210",
			wantStrong: true,
		},
		{
			name:      "override_reaches_own_ceiling",
			strong:    withIncrement(standing(uuid.New(), "300", t0), "95"),
			weak:      standing(uuid.New(), "250", t0.Add(time.Second)),
			wantPrice: "300",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := openedAuction(t, uuid.New(), tc.weak, tc.strong)

			placed := manualBid(t, a, uuid.New(), "110")

			require.Len(t, placed, 1)
			require.Equal(t, tc.strong.BidderID, placed[0].BidderID)
			requireAmount(t, tc.wantPrice, a.Record.CurrentPrice)
			require.Equal(t, tc.wantStrong, a.Proxies.IsActive(tc.strong.BidderID))
			require.False(t, a.Proxies.IsActive(tc.weak.BidderID))
			require.Empty(t, a.Ledger.BidsForBidder(tc.weak.BidderID))
		})
	}
}

// stepwise plays the cascade one increment per bid on its own copy of the
// proxies and returns who leads and at what price.
func stepwise(price, increment decimal.Decimal, last uuid.UUID, proxies []*domain.ProxyBid) (uuid.UUID, decimal.Decimal) {
	active := make(map[uuid.UUID]bool, len(proxies))
	byBidder := make(map[uuid.UUID]*domain.ProxyBid, len(proxies))
	for _, p := range proxies {
		active[p.BidderID] = p.Active
		byBidder[p.BidderID] = p
	}

	stepped := false
	for {
		var selected *domain.ProxyBid
		for _, p := range proxies {
			if !active[p.BidderID] || p.BidderID == last || !p.MaxAmount.GreaterThan(price) {
				continue
			}
			if selected == nil || p.Outranks(selected) {
				selected = p
			}
		}
		if selected == nil {
			break
		}
		raise := price.Add(selected.EffectiveIncrement(increment))
		if raise.GreaterThan(selected.MaxAmount) {
			raise = selected.MaxAmount
			active[selected.BidderID] = false
		}
		price, last, stepped = raise, selected.BidderID, true
	}

	// equal ceilings belong to the earlier authorization
	if leader := byBidder[last]; stepped && leader != nil {
		for _, p := range proxies {
			if p.MaxAmount.Equal(price) && p.Outranks(leader) {
				leader = p
			}
		}
		last = leader.BidderID
	}
	return last, price
}

func TestResolveCascade_MatchesStepwiseBidding(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 400; run++ {
		n := 1 + rng.Intn(5)
		proxies := make([]*domain.ProxyBid, n)
		for i := range proxies {
			proxies[i] = standing(uuid.New(), fmt.Sprint(111+rng.Intn(400)), t0.Add(time.Duration(rng.Intn(3))*time.Second))
			if rng.Intn(3) == 0 {
				withIncrement(proxies[i], fmt.Sprint(1+rng.Intn(60)))
			}
		}
		manual := uuid.New()
		if rng.Intn(4) == 0 {
			// the manual bidder also holds a proxy
			manual = proxies[0].BidderID
		}

		snapshot := make([]*domain.ProxyBid, n)
		for i, p := range proxies {
			c := *p
			snapshot[i] = &c
		}
		wantLeader, wantPrice := stepwise(d("110"), d("10"), manual, snapshot)

		a := openedAuction(t, uuid.New(), proxies...)
		placed := manualBid(t, a, manual, "110")

		require.LessOrEqual(t, len(placed), 1, "run %d", run)
		requireAmount(t, wantPrice.String(), a.Record.CurrentPrice)
		require.Equal(t, wantLeader, a.Ledger.Latest().BidderID, "run %d", run)
	}
}

func TestSettleContest_SkipsLongExchanges(t *testing.T) {
	strong := standing(uuid.New(), "1000000", t0)
	weak := standing(uuid.New(), "999995", t0.Add(time.Second))

	leader, price := settleContest(d("110"), d("10"), strong, weak)
	require.Equal(t, strong.BidderID, leader.BidderID)
	requireAmount(t, "1000000", price)

	wantLeader, wantPrice := stepwise(d("110"), d("10"), uuid.New(), []*domain.ProxyBid{strong, weak})
	require.Equal(t, wantLeader, leader.BidderID)
	requireAmount(t, wantPrice.String(), price)
}
