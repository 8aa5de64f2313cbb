package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shortlink-service/internal/service"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	svc     *service.LinkService
	baseURL string
}

// NewShortLinkHandler 创建处理器实例
func NewShortLinkHandler(svc *service.LinkService, baseURL string) *ShortLinkHandler {
	return &ShortLinkHandler{svc: svc, baseURL: strings.TrimRight(baseURL, "/")}
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortURLRequest 创建短链接的请求体
type CreateShortURLRequest struct {
	URL       string   `json:"url" example:"https://example.com/very/long/path"`
	Validity  *float64 `json:"validity,omitempty" example:"30"` // 有效期，分钟
	Shortcode string   `json:"shortcode,omitempty" example:"mycode1"`
}

// CreateShortURLResponse 创建成功的响应
type CreateShortURLResponse struct {
	ShortLink string `json:"shortLink" example:"http://localhost:8080/abc123"`
	Expiry    string `json:"expiry" example:"2026-01-02T15:04:05Z"`
}

// CreateShortURL godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，可指定有效期（分钟）与自定义短码
// @Tags ShortURL
// @Accept  json
// @Produce  json
// @Param   body  body   CreateShortURLRequest  true  "创建参数"
// @Success 201 {object} CreateShortURLResponse "创建成功"
// @Failure 400 {object} gin.H "参数校验失败"
// @Failure 409 {object} gin.H "短码已被占用"
// @Failure 500 {object} gin.H "短码分配失败或存储错误"
// @Router /shorturls [post]
func (h *ShortLinkHandler) CreateShortURL(c *gin.Context) {
	var req CreateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}

	link, err := h.svc.Create(c.Request.Context(), req.URL, req.Validity, req.Shortcode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateShortURLResponse{
		ShortLink: h.shortLinkURL(c, link.ShortCode),
		Expiry:    link.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Redirect godoc
// @Summary 短链接重定向
// @Description 记录点击后 302 跳转到原始链接；点击写入失败时不跳转
// @Tags ShortURL
// @Produce  json
// @Param   code  path   string  true  "短码"
// @Success 302 "跳转到原始链接"
// @Failure 404 {object} gin.H "链接不存在"
// @Failure 410 {object} gin.H "链接已过期"
// @Failure 500 {object} gin.H "点击记录失败"
// @Router /{code} [get]
func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	target, err := h.svc.Resolve(c.Request.Context(), code, service.ClickMeta{
		IP:        c.ClientIP(),
		Referer:   c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, target)
}

// ClickEventResponse 统计响应中的单条点击
type ClickEventResponse struct {
	Timestamp string `json:"timestamp"`
	IP        string `json:"ip"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Country   string `json:"country,omitempty"`
}

// StatsResponse 短链接统计响应
type StatsResponse struct {
	Shortcode   string               `json:"shortcode"`
	OriginalURL string               `json:"originalUrl"`
	CreatedAt   string               `json:"createdAt"`
	Expiry      string               `json:"expiry"`
	TotalClicks int64                `json:"totalClicks"`
	Clicks      []ClickEventResponse `json:"clicks"`
}

// GetStats godoc
// @Summary 短链接统计
// @Description 查询短链接详情与点击明细，按 page / limit 偏移分页
// @Tags ShortURL
// @Produce  json
// @Param   code   path   string  true   "短码"
// @Param   page   query  int     false  "页码，默认 1"
// @Param   limit  query  int     false  "每页条数，默认 50，上限 1000"
// @Success 200 {object} StatsResponse "统计信息"
// @Failure 400 {object} gin.H "分页参数无效"
// @Failure 404 {object} gin.H "链接不存在"
// @Router /shorturls/{code} [get]
func (h *ShortLinkHandler) GetStats(c *gin.Context) {
	page, limit, err := validator.ValidatePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	link, clicks, err := h.svc.Stats(c.Request.Context(), c.Param("code"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := StatsResponse{
		Shortcode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
		Expiry:      link.ExpiresAt.UTC().Format(time.RFC3339),
		TotalClicks: link.ClickCount,
		Clicks:      make([]ClickEventResponse, 0, len(clicks)),
	}
	for _, click := range clicks {
		resp.Clicks = append(resp.Clicks, ClickEventResponse{
			Timestamp: click.ClickedAt.UTC().Format(time.RFC3339),
			IP:        click.IPAddress,
			Referrer:  click.Referer,
			UserAgent: click.UserAgent,
			Country:   click.Country,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetAllLinks godoc
// @Summary 链接列表
// @Description 返回全部短链接，按创建时间倒序
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} model.ShortLink "链接列表"
// @Router /api/links [get]
func (h *ShortLinkHandler) GetAllLinks(c *gin.Context) {
	links, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// ToggleLink godoc
// @Summary 启用/禁用链接
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} gin.H "状态更新成功"
// @Failure 404 {object} gin.H "链接不存在"
// @Router /api/links/{code} [put]
func (h *ShortLinkHandler) ToggleLink(c *gin.Context) {
	code := c.Param("code")

	link, _, err := h.svc.Stats(c.Request.Context(), code, 1, 1)
	if err != nil {
		h.respondError(c, err)
		return
	}

	newStatus := !link.IsActive
	if err := h.svc.SetActive(c.Request.Context(), code, newStatus); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "状态更新成功", "is_active": newStatus})
}

// DeleteLink godoc
// @Summary 删除链接
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} gin.H "删除成功"
// @Failure 404 {object} gin.H "链接不存在"
// @Router /api/links/{code} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("code")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// shortLinkURL 拼接对外返回的完整短链接
func (h *ShortLinkHandler) shortLinkURL(c *gin.Context, code string) string {
	if h.baseURL != "" {
		return h.baseURL + "/" + code
	}
	return "http://" + c.Request.Host + "/" + code
}

// respondError 将业务错误映射为状态码与结构化消息
// 内部错误细节不外泄，只进日志
func (h *ShortLinkHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, validator.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, shortcode.ErrCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "短码已被占用"})
	case errors.Is(err, service.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在"})
	case errors.Is(err, service.ErrLinkExpired):
		c.JSON(http.StatusGone, gin.H{"error": "链接已过期"})
	case errors.Is(err, shortcode.ErrExhausted):
		zap.S().Errorf("短码分配失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "短码分配失败，请稍后重试"})
	default:
		zap.S().Errorf("请求处理失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}
