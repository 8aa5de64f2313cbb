package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shortlink-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// signToken 生成一个带 exp 声明的测试令牌
func signToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type sinkServer struct {
	server    *httptest.Server
	authCalls atomic.Int64
	logCalls  atomic.Int64
	failLogs  atomic.Int64 // 前 N 次投递返回 500
	lastBody  atomic.Value
}

func newSinkServer(t *testing.T, tokenTTL time.Duration) *sinkServer {
	t.Helper()
	s := &sinkServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		s.authCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": signToken(t, tokenTTL)})
	})
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		s.logCalls.Add(1)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		s.lastBody.Store(payload)
		if s.failLogs.Load() > 0 {
			s.failLogs.Add(-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewClient(config.Audit{
		Enabled:       true,
		BaseURL:       baseURL,
		AuthPath:      "/auth",
		LogPath:       "/logs",
		ClientID:      "client",
		ClientSecret:  "secret",
		MaxRetries:    3,
		TimeoutMillis: 1000,
	}, logger.Sugar())
}

// TestClient_TokenCached 连续投递复用缓存令牌，只换发一次
func TestClient_TokenCached(t *testing.T) {
	sink := newSinkServer(t, time.Hour)
	c := newTestClient(t, sink.server.URL)
	ctx := context.Background()

	c.Log(ctx, "backend", "info", "handler", "第一条")
	c.Log(ctx, "backend", "info", "handler", "第二条")

	assert.Equal(t, int64(1), sink.authCalls.Load())
	assert.Equal(t, int64(2), sink.logCalls.Load())

	payload := sink.lastBody.Load().(map[string]string)
	assert.Equal(t, "backend", payload["stack"])
	assert.Equal(t, "info", payload["level"])
	assert.Equal(t, "handler", payload["package"])
	assert.Equal(t, "第二条", payload["message"])
}

// TestClient_TokenRefreshedNearExpiry 令牌临近过期时重新换发
func TestClient_TokenRefreshedNearExpiry(t *testing.T) {
	// 令牌有效期短于安全窗口，每次投递都会触发换发
	sink := newSinkServer(t, 10*time.Second)
	c := newTestClient(t, sink.server.URL)
	ctx := context.Background()

	c.Log(ctx, "backend", "info", "handler", "a")
	c.Log(ctx, "backend", "info", "handler", "b")

	assert.Equal(t, int64(2), sink.authCalls.Load())
}

// TestClient_RetryThenSuccess 瞬时失败按退避重试后成功
func TestClient_RetryThenSuccess(t *testing.T) {
	sink := newSinkServer(t, time.Hour)
	sink.failLogs.Store(2)
	c := newTestClient(t, sink.server.URL)

	c.Log(context.Background(), "backend", "warn", "handler", "重试消息")

	// 两次失败 + 一次成功
	assert.Equal(t, int64(3), sink.logCalls.Load())
}

// TestClient_FailureSwallowed 重试耗尽后彻底吞掉失败，不 panic 不返回错误
func TestClient_FailureSwallowed(t *testing.T) {
	sink := newSinkServer(t, time.Hour)
	sink.failLogs.Store(99)
	c := newTestClient(t, sink.server.URL)

	assert.NotPanics(t, func() {
		c.Log(context.Background(), "backend", "error", "handler", "注定失败")
	})
	assert.Equal(t, int64(3), sink.logCalls.Load())
}

// TestClient_Disabled 未启用时完全空操作
func TestClient_Disabled(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	c := NewClient(config.Audit{Enabled: false}, logger.Sugar())
	assert.NotPanics(t, func() {
		c.Log(context.Background(), "backend", "info", "handler", "不会发出")
	})
}
