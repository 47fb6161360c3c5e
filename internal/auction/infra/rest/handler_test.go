package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/proxybidEngine/internal/auction/application"
	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/proxybidEngine/internal/auction/infra/settlement"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates map[uuid.UUID][][]*domain.Bid
}

func (n *recordingNotifier) BroadcastAuctionUpdate(_ context.Context, auctionID uuid.UUID, placed []*domain.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.updates == nil {
		n.updates = make(map[uuid.UUID][][]*domain.Bid)
	}
	n.updates[auctionID] = append(n.updates[auctionID], placed)
}

func (n *recordingNotifier) count(auctionID uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates[auctionID])
}

type restFixture struct {
	app      *fiber.App
	notifier *recordingNotifier
	seller   uuid.UUID
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()
	svc := application.NewAuctionService(memory.NewStore(), settlement.LogPublisher{}, application.Options{})
	notifier := &recordingNotifier{}
	app := fiber.New()
	NewAuctionHandler(svc, notifier).Register(app.Group("/api/v1"))
	return &restFixture{app: app, notifier: notifier, seller: uuid.New()}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (f *restFixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// activeAuction creates and activates an auction starting at 100 with increment 10.
func (f *restFixture) activeAuction(t *testing.T) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	status, env := f.do(t, http.MethodPost, "/auctions", map[string]any{
		"seller_id":        f.seller,
		"title":            "vintage guitar",
		"starting_price":   "100",
		"increment_amount": "10",
		"start_time":       now.Add(-time.Minute),
		"end_time":         now.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var created AuctionResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, string(domain.StatusPending), created.Status)

	status, env = f.do(t, http.MethodPost, fmt.Sprintf("/auctions/%s/activate", created.ID), nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	return created.ID
}

func TestCreateAuctionHandler(t *testing.T) {
	f := newRESTFixture(t)
	now := time.Now().UTC()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "success",
			requestBody: map[string]any{
				"seller_id": f.seller, "title": "lamp", "starting_price": "5", "increment_amount": "1",
				"start_time": now, "end_time": now.Add(time.Hour), "time_extension_seconds": 120,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name: "missing_title",
			requestBody: map[string]any{
				"seller_id": f.seller, "starting_price": "5", "increment_amount": "1",
				"start_time": now, "end_time": now.Add(time.Hour),
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name: "end_before_start",
			requestBody: map[string]any{
				"seller_id": f.seller, "title": "lamp", "starting_price": "5", "increment_amount": "1",
				"start_time": now, "end_time": now.Add(-time.Hour),
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name: "negative_increment",
			requestBody: map[string]any{
				"seller_id": f.seller, "title": "lamp", "starting_price": "5", "increment_amount": "-1",
				"start_time": now, "end_time": now.Add(time.Hour),
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := f.do(t, http.MethodPost, "/auctions", tt.requestBody)
			require.Equal(t, tt.expectedStatus, status, env.Error)
			if tt.expectedCode != "" {
				require.Equal(t, tt.expectedCode, env.Code)
			}
		})
	}
}

func TestPlaceBidHandler(t *testing.T) {
	f := newRESTFixture(t)
	auctionID := f.activeAuction(t)
	alice, bob := uuid.New(), uuid.New()

	status, env := f.do(t, http.MethodPut, fmt.Sprintf("/auctions/%s/proxy", auctionID), map[string]any{
		"bidder_id": alice, "max_amount": "200",
	})
	require.Equal(t, http.StatusOK, status, env.Error)

	tests := []struct {
		name           string
		path           string
		requestBody    any
		expectedStatus int
		expectedCode   string
		validateData   func(t *testing.T, res ResolutionResponse)
	}{
		{
			name:           "proxy_answers_manual_bid",
			path:           fmt.Sprintf("/auctions/%s/bids", auctionID),
			requestBody:    map[string]any{"bidder_id": bob, "amount": "150"},
			expectedStatus: http.StatusCreated,
			validateData: func(t *testing.T, res ResolutionResponse) {
				require.NotNil(t, res.Accepted)
				require.Equal(t, "150", res.Accepted.Amount.String())
				require.Len(t, res.Cascade, 1)
				require.Equal(t, alice, res.Cascade[0].BidderID)
				require.Equal(t, "160", res.CurrentPrice.String())
				require.NotNil(t, res.HighestBidderID)
				require.Equal(t, alice, *res.HighestBidderID)
			},
		},
		{
			name:           "below_minimum",
			path:           fmt.Sprintf("/auctions/%s/bids", auctionID),
			requestBody:    map[string]any{"bidder_id": bob, "amount": "165"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "validation_error",
		},
		{
			name:           "seller_cannot_bid",
			path:           fmt.Sprintf("/auctions/%s/bids", auctionID),
			requestBody:    map[string]any{"bidder_id": f.seller, "amount": "500"},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "authorization_error",
		},
		{
			name:           "unknown_auction",
			path:           fmt.Sprintf("/auctions/%s/bids", uuid.New()),
			requestBody:    map[string]any{"bidder_id": bob, "amount": "500"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "malformed_auction_id",
			path:           "/auctions/not-a-uuid/bids",
			requestBody:    map[string]any{"bidder_id": bob, "amount": "500"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name:           "missing_bidder",
			path:           fmt.Sprintf("/auctions/%s/bids", auctionID),
			requestBody:    map[string]any{"amount": "500"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := f.do(t, http.MethodPost, tt.path, tt.requestBody)
			require.Equal(t, tt.expectedStatus, status, env.Error)
			if tt.expectedCode != "" {
				require.Equal(t, tt.expectedCode, env.Code)
			}
			if tt.validateData != nil {
				var res ResolutionResponse
				require.NoError(t, json.Unmarshal(env.Data, &res))
				tt.validateData(t, res)
			}
		})
	}

	status, env = f.do(t, http.MethodGet, fmt.Sprintf("/auctions/%s/bids", auctionID), nil)
	require.Equal(t, http.StatusOK, status)
	var bids []BidResponse
	require.NoError(t, json.Unmarshal(env.Data, &bids))
	require.Len(t, bids, 3)
	require.Equal(t, string(domain.OriginProxyCascade), bids[2].Origin)

	status, env = f.do(t, http.MethodGet, fmt.Sprintf("/bidders/%s/bids", bob), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &bids))
	require.Len(t, bids, 1)

	// activate, set proxy and the accepted bid each notified subscribers
	require.Equal(t, 3, f.notifier.count(auctionID))
}

func TestProxyBidHandlers(t *testing.T) {
	f := newRESTFixture(t)
	auctionID := f.activeAuction(t)
	bidder := uuid.New()
	proxyPath := fmt.Sprintf("/auctions/%s/proxy/%s", auctionID, bidder)

	status, env := f.do(t, http.MethodGet, proxyPath, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", env.Code)

	status, env = f.do(t, http.MethodPut, fmt.Sprintf("/auctions/%s/proxy", auctionID), map[string]any{
		"bidder_id": bidder, "max_amount": "300", "increment_override": "25",
	})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = f.do(t, http.MethodGet, proxyPath, nil)
	require.Equal(t, http.StatusOK, status)
	var proxy ProxyBidResponse
	require.NoError(t, json.Unmarshal(env.Data, &proxy))
	require.True(t, proxy.Active)
	require.Equal(t, "300", proxy.MaxAmount.String())
	require.True(t, proxy.IncrementOverride.Valid)

	status, _ = f.do(t, http.MethodDelete, proxyPath, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = f.do(t, http.MethodGet, proxyPath, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &proxy))
	require.False(t, proxy.Active)

	status, env = f.do(t, http.MethodDelete, fmt.Sprintf("/auctions/%s/proxy/%s", auctionID, uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", env.Code)
}

func TestAuctionLifecycleHandlers(t *testing.T) {
	f := newRESTFixture(t)
	auctionID := f.activeAuction(t)

	status, env := f.do(t, http.MethodGet, fmt.Sprintf("/auctions/%s", auctionID), nil)
	require.Equal(t, http.StatusOK, status)
	var state map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.NotEmpty(t, state)

	// still running
	status, env = f.do(t, http.MethodPost, fmt.Sprintf("/auctions/%s/close", auctionID), nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "state_error", env.Code)

	status, env = f.do(t, http.MethodPost, fmt.Sprintf("/auctions/%s/cancel", auctionID), nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var rec AuctionResponse
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	require.Equal(t, string(domain.StatusCancelled), rec.Status)

	status, env = f.do(t, http.MethodPost, fmt.Sprintf("/auctions/%s/activate", auctionID), nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "state_error", env.Code)

	status, _ = f.do(t, http.MethodGet, fmt.Sprintf("/auctions/%s", uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, status)
}
