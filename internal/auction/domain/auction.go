package domain

// Auction is the aggregate loaded and saved as one unit: the record plus its
// subordinate ledger and proxy registry.
type Auction struct {
	Record  *AuctionRecord
	Ledger  *BidLedger
	Proxies *ProxyBidRegistry
}

func NewAuction(record *AuctionRecord, bids []*Bid, proxies []*ProxyBid) *Auction {
	return &Auction{
		Record:  record,
		Ledger:  NewBidLedger(record.ID, bids),
		Proxies: NewProxyBidRegistry(record.ID, proxies),
	}
}
