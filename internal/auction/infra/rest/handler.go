package rest

import (
	"context"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// UpdateNotifier pushes auction changes to live subscribers.
type UpdateNotifier interface {
	BroadcastAuctionUpdate(ctx context.Context, auctionID uuid.UUID, placed []*domain.Bid)
}

type AuctionHandler struct {
	service  application.AuctionService
	notifier UpdateNotifier
	validate *validator.Validate
}

// NewAuctionHandler builds the REST handler; notifier may be nil.
func NewAuctionHandler(service application.AuctionService, notifier UpdateNotifier) *AuctionHandler {
	return &AuctionHandler{
		service:  service,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the auction routes on router.
func (h *AuctionHandler) Register(router fiber.Router) {
	auctions := router.Group("/auctions")
	auctions.Post("", h.CreateAuction)
	auctions.Get("/:id", h.GetAuction)
	auctions.Post("/:id/activate", h.ActivateAuction)
	auctions.Post("/:id/cancel", h.CancelAuction)
	auctions.Post("/:id/close", h.CloseAuction)
	auctions.Post("/:id/bids", h.PlaceBid)
	auctions.Get("/:id/bids", h.GetBids)
	auctions.Put("/:id/proxy", h.SetProxyBid)
	auctions.Get("/:id/proxy/:bidderID", h.GetProxyBid)
	auctions.Delete("/:id/proxy/:bidderID", h.CancelProxyBid)

	router.Get("/bidders/:id/bids", h.GetBidderBids)
}

func (h *AuctionHandler) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return err
	}
	return h.validate.Struct(req)
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func (h *AuctionHandler) notify(c *fiber.Ctx, auctionID uuid.UUID, placed []*domain.Bid) {
	if h.notifier != nil {
		h.notifier.BroadcastAuctionUpdate(c.UserContext(), auctionID, placed)
	}
}

// CreateAuction handles POST /auctions
func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req CreateAuctionRequest
	if err := h.bind(c, &req); err != nil {
		return handleBindError(c, "CreateAuction", err)
	}

	rec, err := h.service.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		SellerID:        req.SellerID,
		Title:           req.Title,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		IncrementAmount: req.IncrementAmount,
		ReservePrice:    req.ReservePrice,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		TimeExtension:   time.Duration(req.TimeExtensionSeconds) * time.Second,
	})
	if err != nil {
		return handleServiceError(c, "CreateAuction", err)
	}
	return JSONResponse(c, fiber.StatusCreated, toAuctionResponse(rec), "auction created successfully")
}

// GetAuction handles GET /auctions/:id
func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "GetAuction", err)
	}
	state, err := h.service.GetAuctionState(c.UserContext(), id)
	if err != nil {
		return handleServiceError(c, "GetAuction", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "auction retrieved successfully")
}

func (h *AuctionHandler) ActivateAuction(c *fiber.Ctx) error {
	return h.transition(c, "ActivateAuction", h.service.ActivateAuction, "auction activated successfully")
}

func (h *AuctionHandler) CancelAuction(c *fiber.Ctx) error {
	return h.transition(c, "CancelAuction", h.service.CancelAuction, "auction cancelled successfully")
}

func (h *AuctionHandler) transition(c *fiber.Ctx, name string,
	fn func(context.Context, uuid.UUID) (*domain.AuctionRecord, error), message string) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, name, err)
	}
	rec, err := fn(c.UserContext(), id)
	if err != nil {
		return handleServiceError(c, name, err)
	}
	h.notify(c, id, nil)
	return JSONResponse(c, fiber.StatusOK, toAuctionResponse(rec), message)
}

// CloseAuction handles POST /auctions/:id/close
func (h *AuctionHandler) CloseAuction(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "CloseAuction", err)
	}
	event, err := h.service.CloseAuction(c.UserContext(), id)
	if err != nil {
		if event == nil {
			return handleServiceError(c, "CloseAuction", err)
		}
		// closed, but settlement did not get the event
		log.Error("CloseAuction: settlement hand-off failed", zap.String("auctionID", id.String()), zap.Error(err))
	}
	h.notify(c, id, nil)
	return JSONResponse(c, fiber.StatusOK, event, "auction closed successfully")
}

// PlaceBid handles POST /auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "PlaceBid", err)
	}
	var req PlaceBidRequest
	if err := h.bind(c, &req); err != nil {
		return handleBindError(c, "PlaceBid", err)
	}

	res, err := h.service.PlaceManualBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return handleServiceError(c, "PlaceBid", err)
	}
	h.notify(c, id, append([]*domain.Bid{res.Accepted}, res.Cascade...))
	return JSONResponse(c, fiber.StatusCreated, toResolutionResponse(res), "bid recorded successfully")
}

// GetBids handles GET /auctions/:id/bids
func (h *AuctionHandler) GetBids(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "GetBids", err)
	}
	bids, err := h.service.GetBidHistory(c.UserContext(), id)
	if err != nil {
		return handleServiceError(c, "GetBids", err)
	}
	return JSONResponse(c, fiber.StatusOK, toBidResponses(bids), "bids retrieved successfully")
}

// SetProxyBid handles PUT /auctions/:id/proxy
func (h *AuctionHandler) SetProxyBid(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "SetProxyBid", err)
	}
	var req SetProxyBidRequest
	if err := h.bind(c, &req); err != nil {
		return handleBindError(c, "SetProxyBid", err)
	}

	res, err := h.service.SetProxyBid(c.UserContext(), application.SetProxyBidDTO{
		AuctionID:         id,
		BidderID:          req.BidderID,
		MaxAmount:         req.MaxAmount,
		IncrementOverride: req.IncrementOverride,
	})
	if err != nil {
		return handleServiceError(c, "SetProxyBid", err)
	}
	h.notify(c, id, res.Cascade)
	return JSONResponse(c, fiber.StatusOK, toResolutionResponse(res), "proxy bid set successfully")
}

// GetProxyBid handles GET /auctions/:id/proxy/:bidderID
func (h *AuctionHandler) GetProxyBid(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "GetProxyBid", err)
	}
	bidderID, err := uuidParam(c, "bidderID")
	if err != nil {
		return handleBindError(c, "GetProxyBid", err)
	}
	p, err := h.service.GetProxySetting(c.UserContext(), id, bidderID)
	if err != nil {
		return handleServiceError(c, "GetProxyBid", err)
	}
	if p == nil {
		return JSONError(c, fiber.StatusNotFound, domain.ErrProxyBidNotFound, "proxy bid not found")
	}
	return JSONResponse(c, fiber.StatusOK, toProxyBidResponse(p), "proxy bid retrieved successfully")
}

// CancelProxyBid handles DELETE /auctions/:id/proxy/:bidderID
func (h *AuctionHandler) CancelProxyBid(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "CancelProxyBid", err)
	}
	bidderID, err := uuidParam(c, "bidderID")
	if err != nil {
		return handleBindError(c, "CancelProxyBid", err)
	}
	if err := h.service.CancelAutoBid(c.UserContext(), id, bidderID); err != nil {
		return handleServiceError(c, "CancelProxyBid", err)
	}
	h.notify(c, id, nil)
	return JSONResponse(c, fiber.StatusOK, nil, "proxy bid cancelled successfully")
}

// GetBidderBids handles GET /bidders/:id/bids
func (h *AuctionHandler) GetBidderBids(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return handleBindError(c, "GetBidderBids", err)
	}
	bids, err := h.service.GetBidderBids(c.UserContext(), id)
	if err != nil {
		return handleServiceError(c, "GetBidderBids", err)
	}
	return JSONResponse(c, fiber.StatusOK, toBidResponses(bids), "bids retrieved successfully")
}
