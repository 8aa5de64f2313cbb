package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shortlink-service/internal/model"
	"shortlink-service/internal/service"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubGeo struct{}

func (stubGeo) Country(string) string { return "US" }

type stubAudit struct{}

func (stubAudit) Log(context.Context, string, string, string, string) {}

// setupTest 为集成测试初始化一个干净的环境
// 返回配置好的 gin.Engine 与底层存储（用于预置测试数据）
func setupTest(t *testing.T) (*gin.Engine, *store.GormStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")
	require.NoError(t, db.AutoMigrate(&model.ShortLink{}, &model.ClickEvent{}), "数据库迁移失败")
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	linkStore := store.NewGormStore(db, sugar)
	allocator := shortcode.NewAllocator(linkStore, shortcode.Config{
		Length: 6, MaxRetriesPerLength: 5, MaxLengthEscalations: 2,
	}, sugar)
	// 测试不依赖 Redis 缓存，传入 nil
	svc := service.NewLinkService(linkStore, allocator, nil, stubGeo{}, stubAudit{}, service.Config{
		DefaultValidityMinutes: 30,
	}, sugar)

	h := NewShortLinkHandler(svc, "")

	router := gin.New()
	router.POST("/shorturls", h.CreateShortURL)
	router.GET("/shorturls/:code", h.GetStats)
	router.GET("/:code", h.Redirect)

	return router, linkStore
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	bodyBytes, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func codeFromShortLink(shortLink string) string {
	return shortLink[strings.LastIndex(shortLink, "/")+1:]
}

// TestCreateShortURL 默认参数创建：201、6 位短码、过期时间约为 30 分钟后
func TestCreateShortURL(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/shorturls", gin.H{"url": "https://example.com/page"})
	require.Equal(t, http.StatusCreated, w.Code, "创建短链接时，状态码应为 201 Created")

	var resp CreateShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	code := codeFromShortLink(resp.ShortLink)
	assert.Len(t, code, 6)

	expiry, err := time.Parse(time.RFC3339, resp.Expiry)
	require.NoError(t, err, "expiry 应是 RFC3339 格式")
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiry, time.Minute)
}

func TestCreateShortURL_Validation(t *testing.T) {
	router, _ := setupTest(t)

	t.Run("ftp 协议被拒绝", func(t *testing.T) {
		w := postJSON(router, "/shorturls", gin.H{"url": "ftp://example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("本机地址被拒绝", func(t *testing.T) {
		w := postJSON(router, "/shorturls", gin.H{"url": "http://localhost/admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("缺少 url", func(t *testing.T) {
		w := postJSON(router, "/shorturls", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("非法有效期", func(t *testing.T) {
		w := postJSON(router, "/shorturls", gin.H{"url": "https://example.com", "validity": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestCreateShortURL_CustomCodeConflict 相同自定义短码的第二次创建返回 409
func TestCreateShortURL_CustomCodeConflict(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/shorturls", gin.H{"url": "https://example.com/1", "shortcode": "abcd"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(router, "/shorturls", gin.H{"url": "https://example.com/2", "shortcode": "abcd"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 自定义短码语法错误是 400 而不是 409
	w = postJSON(router, "/shorturls", gin.H{"url": "https://example.com/3", "shortcode": "a!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRedirect 创建后访问短码应 302 到原始链接
func TestRedirect(t *testing.T) {
	router, _ := setupTest(t)

	originalURL := "https://www.google.com/very/long/path/that/needs/shortening"
	w := postJSON(router, "/shorturls", gin.H{"url": originalURL})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code := codeFromShortLink(resp.ShortLink)

	req, _ := http.NewRequest(http.MethodGet, "/"+code, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code, "访问短码时，状态码应为 302 Found")
	assert.Equal(t, originalURL, w.Header().Get("Location"), "重定向的 URL 应与原始 URL 匹配")
}

func TestRedirect_UnknownCode(t *testing.T) {
	router, _ := setupTest(t)

	req, _ := http.NewRequest(http.MethodGet, "/nope99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRedirect_Expired 已过期但尚未被清理的记录返回 410，不与 404 混淆
func TestRedirect_Expired(t *testing.T) {
	router, linkStore := setupTest(t)

	// 直接预置一条已过期的记录，模拟被动清理尚未执行的窗口
	now := time.Now()
	require.NoError(t, linkStore.Create(context.Background(), &model.ShortLink{
		ShortCode:   "dead01",
		OriginalURL: "https://example.com",
		IsActive:    true,
		CreatedAt:   now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}))

	req, _ := http.NewRequest(http.MethodGet, "/dead01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusGone, w.Code)
}

// TestGetStats_Pagination 25 次点击后第二页（每页 10 条）返回第 10-19 条
func TestGetStats_Pagination(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/shorturls", gin.H{"url": "https://example.com/page"})
	require.Equal(t, http.StatusCreated, w.Code)
	var createResp CreateShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	code := codeFromShortLink(createResp.ShortLink)

	for i := 0; i < 25; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/"+code, nil)
		req.RemoteAddr = fmt.Sprintf("203.0.113.%d:12345", i)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusFound, w.Code)
	}

	req, _ := http.NewRequest(http.MethodGet, "/shorturls/"+code+"?page=2&limit=10", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, code, stats.Shortcode)
	assert.Equal(t, "https://example.com/page", stats.OriginalURL)
	assert.Equal(t, int64(25), stats.TotalClicks)
	require.Len(t, stats.Clicks, 10)
	assert.Equal(t, "203.0.113.10", stats.Clicks[0].IP)
	assert.Equal(t, "203.0.113.19", stats.Clicks[9].IP)
	assert.Equal(t, "US", stats.Clicks[0].Country)
}

func TestGetStats_Errors(t *testing.T) {
	router, _ := setupTest(t)

	t.Run("未知短码返回 404", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/shorturls/nope99", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("非法分页返回 400", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/shorturls/abcd12?page=0", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
