package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/api/rpc"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/config"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/monitoring"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := observability.DefaultLogger()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.NewMigrationManager(db, "sqlite").Migrate(context.Background()))

	repo := storage.NewOutletRepository(db, "sqlite")
	seed := storage.Outlet{
		Name: "SS 2 Drive-Thru", Address: "Jalan SS 2/75", City: "Petaling Jaya",
		State: "Selangor", Postcode: "47300", HasDriveThru: true,
	}
	require.NoError(t, repo.Upsert(context.Background(), &seed))

	index := retrieval.NewIndex([]retrieval.Product{
		{
			ID: "zus-001", Name: "ZUS All Day Cup", Category: "Drinkware",
			Description: "Stainless steel tumbler", PriceMYR: 79, CapacityML: 500, InStock: true,
		},
	})

	cfg := config.DefaultConfig()
	cfg.RateLimit.Enabled = false

	outletService := text2sql.NewService(repo, nil, logger)
	sessions := chat.NewStore(50, cfg.Chat.SessionIdleTTL, logger)
	usage := monitoring.NewUsage()
	dispatcher := chat.NewDispatcher(sessions, outletService, index, usage, cfg.Chat.DefaultTopK, logger)

	return NewRouter(Dependencies{
		Logger:     logger,
		Config:     cfg,
		DB:         db,
		Dispatcher: dispatcher,
		Usage:      usage,
		Outlets:    outletService,
		OutletRepo: repo,
		Products:   index,
		Limiter:    cache.NewMemoryClient(100),
		ChatRPC:    rpc.NewChatService(dispatcher, logger),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"convo-sage"}`, rec.Body.String())
}

func TestRouter_Ready(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestRouter_ChatRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"message": "Find outlets in Petaling Jaya"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, chat.ToolOutlets, reply.Tool)
	assert.Contains(t, reply.Text, "SS 2 Drive-Thru")
	assert.NotEmpty(t, reply.SessionID)
}

func TestRouter_OutletSearch(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"question": "outlets in PJ"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outlets/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SS 2 Drive-Thru")
}

func TestRouter_ProductSearch(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"query": "tumbler"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zus-001")
}

func TestRouter_ConnectChat(t *testing.T) {
	router := newTestRouter(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client := connect.NewClient[rpc.ChatRequest, rpc.ChatResponse](
		server.Client(),
		server.URL+"/rpc"+rpc.ChatProcedure,
		rpc.Codec(),
	)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&rpc.ChatRequest{
		Message: "Calculate 12/4",
	}))
	require.NoError(t, err)
	assert.Equal(t, "The result of 12/4 is 3", resp.Msg.Response)
	assert.Equal(t, "calculator", resp.Msg.Tool)
}

func TestRouter_RateLimitHeaders(t *testing.T) {
	router := newTestRouterWithRateLimit(t, 2)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.RemoteAddr = "9.9.9.9:1000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health stays reachable for probes.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "9.9.9.9:1000"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newTestRouterWithRateLimit(t *testing.T, perMinute int) http.Handler {
	t.Helper()
	logger := observability.DefaultLogger()

	index := retrieval.NewIndex(nil)
	cfg := config.DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerMinute = perMinute
	cfg.RateLimit.PerHour = 1000

	outletService := text2sql.NewService(noopExecutor{}, nil, logger)
	sessions := chat.NewStore(50, cfg.Chat.SessionIdleTTL, logger)
	dispatcher := chat.NewDispatcher(sessions, outletService, index, nil, cfg.Chat.DefaultTopK, logger)

	return NewRouter(Dependencies{
		Logger:     logger,
		Config:     cfg,
		Dispatcher: dispatcher,
		Outlets:    outletService,
		Products:   index,
		Limiter:    cache.NewMemoryClient(100),
	})
}

type noopExecutor struct{}

func (noopExecutor) ExecuteSearch(ctx context.Context, query string, binds []interface{}) ([]storage.Outlet, error) {
	return []storage.Outlet{}, nil
}

func (noopExecutor) ExecuteCount(ctx context.Context, query string, binds []interface{}) (int, error) {
	return 0, nil
}
