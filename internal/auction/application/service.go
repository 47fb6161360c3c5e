package application

import (
	"context"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService is the application interface of the auction module,
// consumed by the infra layer (HTTP, websocket, scheduler).
type AuctionService interface {
	// PlaceManualBid validates and accepts a bid, then resolves the proxy cascade it triggers.
	PlaceManualBid(ctx context.Context, cmd PlaceBidDTO) (*BidResolution, error)
	SetProxyBid(ctx context.Context, cmd SetProxyBidDTO) (*BidResolution, error)
	CancelAutoBid(ctx context.Context, auctionID, bidderID uuid.UUID) error

	GetBidHistory(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error)
	GetProxySetting(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.ProxyBid, error)
	GetBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*domain.Bid, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)

	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.AuctionRecord, error)
	ActivateAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error)
	CancelAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error)
	CloseAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error)
	// ListExpired returns active auctions whose end time is at or before the clock's now.
	ListExpired(ctx context.Context) ([]*domain.AuctionRecord, error)
	// ListPendingSettlements returns closed auctions whose settlement event is not yet acknowledged.
	ListPendingSettlements(ctx context.Context) ([]*domain.AuctionRecord, error)
	RedeliverSettlement(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error)
}

// Options tune the engine; zero values pick the defaults.
type Options struct {
	MaxConflictAttempts int
	Clock               Clock
}

// concrete implementation of AuctionService
type auctionService struct {
	engine       *bidEngine
	placeBidUC   *PlaceBidUseCase
	setProxyUC   *SetProxyBidUseCase
	cancelAutoUC *CancelAutoBidUseCase
	createUC     *CreateAuctionUseCase
	transitionUC *TransitionUseCase
	closeUC      *CloseAuctionUseCase
	stateUC      *GetAuctionStateUseCase
	bidQueriesUC *BidQueriesUseCase
}

func NewAuctionService(store domain.AuctionStore, publisher domain.SettlementPublisher, opts Options) AuctionService {
	engine := newBidEngine(store, NewConcurrencyController(opts.MaxConflictAttempts), opts.Clock)
	return &auctionService{
		engine:       engine,
		placeBidUC:   NewPlaceBidUseCase(engine),
		setProxyUC:   NewSetProxyBidUseCase(engine),
		cancelAutoUC: NewCancelAutoBidUseCase(engine),
		createUC:     NewCreateAuctionUseCase(store),
		transitionUC: NewTransitionUseCase(engine),
		closeUC:      NewCloseAuctionUseCase(engine, publisher),
		stateUC:      NewGetAuctionStateUseCase(store),
		bidQueriesUC: NewBidQueriesUseCase(store),
	}
}

func (as *auctionService) PlaceManualBid(ctx context.Context, cmd PlaceBidDTO) (*BidResolution, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) SetProxyBid(ctx context.Context, cmd SetProxyBidDTO) (*BidResolution, error) {
	return as.setProxyUC.Execute(ctx, cmd)
}

func (as *auctionService) CancelAutoBid(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	return as.cancelAutoUC.Execute(ctx, auctionID, bidderID)
}

func (as *auctionService) GetBidHistory(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return as.bidQueriesUC.BidHistory(ctx, auctionID)
}

func (as *auctionService) GetProxySetting(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.ProxyBid, error) {
	return as.bidQueriesUC.ProxySetting(ctx, auctionID, bidderID)
}

func (as *auctionService) GetBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*domain.Bid, error) {
	return as.bidQueriesUC.BidderBids(ctx, bidderID)
}

func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return as.stateUC.Execute(ctx, auctionID)
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.AuctionRecord, error) {
	return as.createUC.Execute(ctx, cmd)
}

func (as *auctionService) ActivateAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error) {
	return as.transitionUC.Activate(ctx, auctionID)
}

func (as *auctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionRecord, error) {
	return as.transitionUC.Cancel(ctx, auctionID)
}

func (as *auctionService) CloseAuction(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error) {
	return as.closeUC.Execute(ctx, auctionID)
}

func (as *auctionService) ListExpired(ctx context.Context) ([]*domain.AuctionRecord, error) {
	return as.engine.store.GetAuctionsEndingBefore(ctx, as.engine.clock())
}

func (as *auctionService) ListPendingSettlements(ctx context.Context) ([]*domain.AuctionRecord, error) {
	return as.closeUC.ListPending(ctx)
}

func (as *auctionService) RedeliverSettlement(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionClosedEvent, error) {
	return as.closeUC.Redeliver(ctx, auctionID)
}
