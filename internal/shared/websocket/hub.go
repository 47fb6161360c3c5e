package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Capacity of the hub control channels and of each client's send queue.
	queueSize = 256
)

// Hub keeps the client registry, grouped by auction, and fans out broadcasts.
// Only the Run goroutine touches the registry.
type Hub struct {
	// auction ID -> set of clients
	clients         map[string]map[*Client]bool
	broadcast       chan *Message
	register        chan *Client
	unregister      chan *Client
	InboundMessages chan *ClientMessage // consumed by module handlers
}

// Client is one websocket connection subscribed to one auction.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send       chan []byte
	AuctionID  string
	ID         string
	RemoteAddr string
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage pairs an inbound payload with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, queueSize),
		register:        make(chan *Client, queueSize),
		unregister:      make(chan *Client, queueSize),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, queueSize),
	}
}

// NewClient builds a client for conn; it still has to be registered.
func NewClient(hub *Hub, conn *websocket.Conn, auctionID, clientID string) *Client {
	c := &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, queueSize),
		AuctionID: auctionID,
		ID:        clientID,
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket hub shutting down")
			for _, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
				zap.String("remote_addr", client.RemoteAddr),
				zap.Int("total_clients", h.total()),
			)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			clients, ok := h.clients[message.AuctionID]
			if !ok {
				continue
			}
			log.Debug("Broadcasting message to auction", zap.String("auctionID", message.AuctionID), zap.Int("clients", len(clients)))
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					// slow consumer, drop it
					log.Warn("Client send queue full, unregistering",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
						zap.String("remote_addr", client.RemoteAddr),
					)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.String("remote_addr", client.RemoteAddr),
		zap.Int("total_clients", h.total()),
	)
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
		log.Info("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
}

func (h *Hub) total() int {
	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// RegisterClient queues client for registration without blocking.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		return false
	}
}

// UnregisterClient queues client for removal; removing twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastToAuction sends data to every client subscribed to auctionID.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("auctionID", auctionID))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("auctionID", auctionID))
	}
}

// SendTo queues data for a single client without blocking.
func (c *Client) SendTo(data []byte) bool {
	defer func() {
		// Send may already be closed by the hub
		_ = recover()
	}()
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}
