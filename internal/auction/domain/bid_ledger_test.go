package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBidLedger_AppendAssignsIdentity(t *testing.T) {
	auctionID := uuid.New()
	ledger := NewBidLedger(auctionID, nil)

	id := ledger.Append(NewBid(uuid.Nil, uuid.New(), d("100"), t0, OriginManual))
	require.NotEqual(t, uuid.Nil, id)

	latest := ledger.Latest()
	require.Equal(t, id, latest.ID)
	require.Equal(t, auctionID, latest.AuctionID)
	require.Equal(t, int64(1), latest.Seq)
	require.Len(t, ledger.Pending(), 1)

	ledger.MarkCommitted()
	require.Empty(t, ledger.Pending())
	require.Equal(t, 1, ledger.Len())
}

func TestBidLedger_HighestBidTieBreak(t *testing.T) {
	ledger := NewBidLedger(uuid.New(), nil)
	early := uuid.New()
	late := uuid.New()

	ledger.Append(NewBid(uuid.Nil, uuid.New(), d("100"), t0, OriginManual))
	ledger.Append(NewBid(uuid.Nil, late, d("150"), t0.Add(2*time.Second), OriginManual))
	ledger.Append(NewBid(uuid.Nil, early, d("150"), t0.Add(time.Second), OriginProxyCascade))

	require.Equal(t, early, ledger.HighestBid().BidderID)
}

func TestBidLedger_Orderings(t *testing.T) {
	ledger := NewBidLedger(uuid.New(), nil)
	alice := uuid.New()
	bob := uuid.New()

	ledger.Append(NewBid(uuid.Nil, alice, d("100"), t0, OriginManual))
	ledger.Append(NewBid(uuid.Nil, bob, d("110"), t0.Add(time.Second), OriginManual))
	ledger.Append(NewBid(uuid.Nil, alice, d("120"), t0.Add(2*time.Second), OriginProxyCascade))

	history := ledger.BidsForAuction()
	require.Len(t, history, 3)
	require.True(t, history[0].Amount.Equal(d("120")))
	require.True(t, history[2].Amount.Equal(d("100")))

	aliceBids := ledger.BidsForBidder(alice)
	require.Len(t, aliceBids, 2)
	require.True(t, aliceBids[0].PlacedAt.After(aliceBids[1].PlacedAt))

	require.Equal(t, alice, ledger.Latest().BidderID)
	require.Empty(t, ledger.BidsForBidder(uuid.New()))
}

func TestNewBidLedger_CopiesInput(t *testing.T) {
	persisted := []*Bid{{ID: uuid.New(), Amount: d("100"), Seq: 1}}
	ledger := NewBidLedger(uuid.New(), persisted)
	ledger.Append(NewBid(uuid.Nil, uuid.New(), d("110"), t0, OriginManual))

	require.Len(t, persisted, 1)
	require.Equal(t, int64(2), ledger.Latest().Seq)
	require.Len(t, ledger.Pending(), 1)
}
