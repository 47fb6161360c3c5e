package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/cristianortiz/proxybidEngine/internal/shared/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var errInvalidMessage = errors.New("invalid message format")

// AuctionWSHandler handles the inbound ws messages of the auction module and
// broadcasts auction updates to subscribed clients.
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *websocket.Hub
	validate       *validator.Validate
}

func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the upgrade route /ws/auctions/:id on router.
func (h *AuctionWSHandler) Register(ctx context.Context, router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/auctions/:id", h.checkAuction, fiberws.New(func(conn *fiberws.Conn) {
		h.serveConn(ctx, conn)
	}))
}

// checkAuction rejects the upgrade for unknown auctions.
func (h *AuctionWSHandler) checkAuction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	if _, err := h.auctionService.GetAuctionState(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "auction not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
	return c.Next()
}

func (h *AuctionWSHandler) serveConn(ctx context.Context, conn *fiberws.Conn) {
	auctionID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		return
	}
	client := websocket.NewClient(h.hub, conn, auctionID.String(), uuid.NewString())
	if !h.hub.RegisterClient(client) {
		return
	}

	state, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		h.sendErrorToClient(client, err)
	} else {
		h.send(client, ServerInitialStateMessage{
			BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
			Payload:     state,
		})
	}
	client.Serve(ctx)
}

// ListenForMessages drains the hub inbound channel until ctx is done.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, errInvalidMessage)
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBid(ctx, client, data)
	case MessageTypeClientSetProxy:
		h.handleClientSetProxy(ctx, client, data)
	case MessageTypeClientCancelProxy:
		h.handleClientCancelProxy(ctx, client, data)
	default:
		h.sendErrorToClient(client, errors.New("unknown message type"))
	}
}

// decode unmarshals and validates msg and checks it targets the client's auction.
func (h *AuctionWSHandler) decode(client *websocket.Client, data []byte, msg any, auctionID func() uuid.UUID) bool {
	if err := json.Unmarshal(data, msg); err != nil {
		h.sendErrorToClient(client, errInvalidMessage)
		return false
	}
	if err := h.validate.Struct(msg); err != nil {
		h.sendErrorToClient(client, errInvalidMessage)
		return false
	}
	if auctionID().String() != client.AuctionID {
		h.sendErrorToClient(client, errors.New("auction ID mismatch"))
		return false
	}
	return true
}

func (h *AuctionWSHandler) handleClientBid(ctx context.Context, client *websocket.Client, data []byte) {
	var msg ClientBidMessage
	if !h.decode(client, data, &msg, func() uuid.UUID { return msg.Payload.AuctionID }) {
		return
	}
	res, err := h.auctionService.PlaceManualBid(ctx, application.PlaceBidDTO{
		AuctionID: msg.Payload.AuctionID,
		BidderID:  msg.Payload.BidderID,
		Amount:    msg.Payload.Amount,
	})
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	h.BroadcastAuctionUpdate(ctx, res.AuctionID, append([]*domain.Bid{res.Accepted}, res.Cascade...))
}

func (h *AuctionWSHandler) handleClientSetProxy(ctx context.Context, client *websocket.Client, data []byte) {
	var msg ClientSetProxyMessage
	if !h.decode(client, data, &msg, func() uuid.UUID { return msg.Payload.AuctionID }) {
		return
	}
	res, err := h.auctionService.SetProxyBid(ctx, application.SetProxyBidDTO{
		AuctionID:         msg.Payload.AuctionID,
		BidderID:          msg.Payload.BidderID,
		MaxAmount:         msg.Payload.MaxAmount,
		IncrementOverride: msg.Payload.IncrementOverride,
	})
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	h.BroadcastAuctionUpdate(ctx, res.AuctionID, res.Cascade)
}

func (h *AuctionWSHandler) handleClientCancelProxy(ctx context.Context, client *websocket.Client, data []byte) {
	var msg ClientCancelProxyMessage
	if !h.decode(client, data, &msg, func() uuid.UUID { return msg.Payload.AuctionID }) {
		return
	}
	if err := h.auctionService.CancelAutoBid(ctx, msg.Payload.AuctionID, msg.Payload.BidderID); err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	h.BroadcastAuctionUpdate(ctx, msg.Payload.AuctionID, nil)
}

// BroadcastAuctionUpdate sends the current auction state and the bids just
// placed to every client watching the auction.
func (h *AuctionWSHandler) BroadcastAuctionUpdate(ctx context.Context, auctionID uuid.UUID, placed []*domain.Bid) {
	state, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		log.Error("Failed to load auction state for broadcast", zap.String("auctionID", auctionID.String()), zap.Error(err))
		return
	}

	msg := ServerAuctionUpdateMessage{BaseMessage: BaseMessage{Type: MessageTypeServerUpdate}}
	msg.Payload.AuctionID = state.AuctionID
	msg.Payload.CurrentPrice = state.CurrentPrice
	msg.Payload.MinimumNextBid = state.MinimumNextBid
	msg.Payload.Status = state.Status
	msg.Payload.EndTime = state.EndTime
	msg.Payload.BidCount = state.BidCount
	msg.Payload.HighestBidderID = state.HighestBidderID
	msg.Payload.Bids = toBidPayloads(placed)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to marshal auction update", zap.Error(err))
		return
	}
	h.hub.BroadcastToAuction(auctionID.String(), data)
}

func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, err error) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = err.Error()
	errMsg.Payload.Code = domain.Code(err)
	if domain.Kind(err) == nil {
		// protocol errors raised by this handler
		errMsg.Payload.Code = "bad_request"
	}
	h.send(client, errMsg)
}

func (h *AuctionWSHandler) send(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to marshal ws message", zap.Error(err))
		return
	}
	if !client.SendTo(data) {
		log.Warn("Client send queue full or closed, message dropped",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}
