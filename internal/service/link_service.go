package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"shortlink-service/internal/model"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/store"
	"shortlink-service/internal/validator"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrLinkNotFound 短码不存在（或已被禁用）
	ErrLinkNotFound = errors.New("链接不存在")
	// ErrLinkExpired 短码存在但已过期，必须与不存在严格区分（410 vs 404）
	ErrLinkExpired = errors.New("链接已过期")
)

const (
	// maxMetaLength referrer / user-agent 的截断长度
	maxMetaLength = 500
	// createRetries 自动生成短码在创建写入层面的竞态重试次数
	createRetries = 3
	// cacheTimeout 单次缓存读写的超时
	cacheTimeout = 1 * time.Second
	// auditTimeout 单条审计日志（含重试）允许的总时长
	auditTimeout = 5 * time.Second
)

// tagPattern 用于剥离 referrer / user-agent 中的 HTML 标签，
// 纵深防御性质的清洗，不是安全边界
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// GeoLookup IP 归属地查询，尽力而为
type GeoLookup interface {
	Country(ip string) string
}

// AuditSink 远程审计日志，旁路发送
type AuditSink interface {
	Log(ctx context.Context, stack, level, component, message string)
}

// Config 业务层参数
type Config struct {
	DefaultValidityMinutes int
}

// ClickMeta 一次重定向请求携带的点击元信息
type ClickMeta struct {
	IP        string
	Referer   string
	UserAgent string
}

// LinkService 短链接业务核心：创建、重定向解析、点击记录、统计
// 不持有任何进程内锁，也不在内存缓存记录，序列化完全交给存储层；
// Redis 缓存只存活到记录过期，命中后仍做显式的过期判断。
type LinkService struct {
	store     store.LinkStore
	allocator *shortcode.Allocator
	cache     *redis.Client // 可为 nil
	geo       GeoLookup
	audit     AuditSink
	cfg       Config
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewLinkService 创建业务实例
func NewLinkService(
	linkStore store.LinkStore,
	allocator *shortcode.Allocator,
	cache *redis.Client,
	geo GeoLookup,
	auditSink AuditSink,
	cfg Config,
	logger *zap.SugaredLogger,
) *LinkService {
	if cfg.DefaultValidityMinutes <= 0 {
		cfg.DefaultValidityMinutes = 30
	}
	return &LinkService{
		store:     linkStore,
		allocator: allocator,
		cache:     cache,
		geo:       geo,
		audit:     auditSink,
		cfg:       cfg,
		logger:    logger.Named("link_service"),
		now:       time.Now,
	}
}

// Create 创建一条短链接
// 自定义短码只尝试一次，占用冲突（包括创建时的并发竞态）返回
// shortcode.ErrCodeTaken；自动生成的短码在创建写入遇到重复键时
// 透明地重新分配并重试，重试耗尽返回 shortcode.ErrExhausted。
func (s *LinkService) Create(ctx context.Context, rawURL string, validityMinutes *float64, customCode string) (*model.ShortLink, error) {
	targetURL, err := validator.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	ttl, err := validator.ValidateTTLMinutes(validityMinutes, s.cfg.DefaultValidityMinutes)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(customCode) != "" {
		code, err := s.allocator.Reserve(ctx, customCode)
		if err != nil {
			return nil, err
		}
		link, err := s.createRecord(ctx, code, targetURL, ttl)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateCode) {
				// 探测与写入之间被并发请求抢占
				return nil, shortcode.ErrCodeTaken
			}
			return nil, err
		}
		s.afterCreate(link)
		return link, nil
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		code, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, err
		}
		link, err := s.createRecord(ctx, code, targetURL, ttl)
		if err == nil {
			s.afterCreate(link)
			return link, nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) {
			return nil, err
		}
		s.logger.Warnf("短码 %s 在写入时发生竞态冲突，重新分配 (%d/%d)", code, attempt+1, createRetries)
	}
	return nil, shortcode.ErrExhausted
}

// createRecord 组装并写入记录，写入前强制 expires_at 严格晚于 created_at
func (s *LinkService) createRecord(ctx context.Context, code, targetURL string, ttlMinutes int) (*model.ShortLink, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(ttlMinutes) * time.Minute)
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: 有效期必须大于 0", validator.ErrInvalid)
	}

	link := &model.ShortLink{
		ShortCode:   code,
		OriginalURL: targetURL,
		IsActive:    true,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *LinkService) afterCreate(link *model.ShortLink) {
	s.cacheSet(link)
	s.auditAsync("info", "service", "创建短链接: "+link.ShortCode)
}

// Resolve 解析重定向：查找记录、过期判断、记录点击、返回目标链接
// 点击写入失败时不发出重定向（fail-closed），保证点击计数与
// 重定向投递不会静默发散。
func (s *LinkService) Resolve(ctx context.Context, code string, meta ClickMeta) (string, error) {
	targetURL, expiresAt, active, cached := s.cacheGet(ctx, code)
	if !cached {
		link, err := s.store.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrLinkNotFound
			}
			return "", err
		}
		targetURL, expiresAt, active = link.OriginalURL, link.ExpiresAt, link.IsActive
		s.cacheSet(link)
	}

	if !active {
		return "", ErrLinkNotFound
	}
	// 被动清理是异步的，记录仍然存在不代表存活
	if s.now().After(expiresAt) {
		return "", ErrLinkExpired
	}

	click := s.buildClick(meta)
	if err := s.store.AppendClick(ctx, code, click); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrLinkNotFound
		}
		return "", err
	}

	s.auditAsync("info", "service", "重定向: "+code)
	return targetURL, nil
}

// buildClick 组装点击记录：IP 必填，referrer 与 user-agent 截断并
// 剥离 HTML 标签，国家代码尽力而为
func (s *LinkService) buildClick(meta ClickMeta) *model.ClickEvent {
	return &model.ClickEvent{
		ClickedAt: s.now(),
		IPAddress: meta.IP,
		Referer:   sanitizeMeta(meta.Referer),
		UserAgent: sanitizeMeta(meta.UserAgent),
		Country:   s.geo.Country(meta.IP),
	}
}

// Stats 短链接统计，点击列表按 offset = (page-1)*limit 分页
// 已过期但尚未被清理的记录仍然可以查询统计。
func (s *LinkService) Stats(ctx context.Context, code string, page, limit int) (*model.ShortLink, []model.ClickEvent, error) {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrLinkNotFound
		}
		return nil, nil, err
	}

	clicks, err := s.store.ListClicks(ctx, code, (page-1)*limit, limit)
	if err != nil {
		return nil, nil, err
	}
	return link, clicks, nil
}

// List 返回全部链接（管理接口）
func (s *LinkService) List(ctx context.Context) ([]model.ShortLink, error) {
	return s.store.ListLinks(ctx)
}

// SetActive 启用或禁用链接并使缓存失效（管理接口）
func (s *LinkService) SetActive(ctx context.Context, code string, active bool) error {
	if err := s.store.SetActive(ctx, code, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	s.cacheDel(ctx, code)
	return nil
}

// Delete 删除链接并使缓存失效（管理接口）
func (s *LinkService) Delete(ctx context.Context, code string) error {
	if err := s.store.Delete(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	s.cacheDel(ctx, code)
	return nil
}

// ---- 缓存 ----

// cachedRecord Redis 中缓存的记录快照，带过期时间以便命中后
// 仍能做显式的存活判断
type cachedRecord struct {
	OriginalURL string    `json:"original_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsActive    bool      `json:"is_active"`
}

func cacheKey(code string) string {
	return "shortlink:" + code
}

func (s *LinkService) cacheSet(link *model.ShortLink) {
	if s.cache == nil {
		return
	}
	remaining := time.Until(link.ExpiresAt)
	if remaining <= 0 {
		return
	}

	data, err := json.Marshal(cachedRecord{
		OriginalURL: link.OriginalURL,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	// 缓存寿命不超过记录本身的有效期
	if err := s.cache.Set(ctx, cacheKey(link.ShortCode), data, remaining).Err(); err != nil {
		s.logger.Debugf("写入缓存失败: %v", err)
	}
}

func (s *LinkService) cacheGet(ctx context.Context, code string) (url string, expiresAt time.Time, active bool, ok bool) {
	if s.cache == nil {
		return "", time.Time{}, false, false
	}

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	val, err := s.cache.Get(cctx, cacheKey(code)).Result()
	if err != nil {
		return "", time.Time{}, false, false
	}

	var rec cachedRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return "", time.Time{}, false, false
	}
	return rec.OriginalURL, rec.ExpiresAt, rec.IsActive, true
}

func (s *LinkService) cacheDel(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Del(cctx, cacheKey(code)).Err(); err != nil {
		s.logger.Debugf("删除缓存失败: %v", err)
	}
}

// ---- 审计 ----

// auditAsync 旁路发送审计日志，绝不阻塞调用方
func (s *LinkService) auditAsync(level, component, message string) {
	if s.audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		s.audit.Log(ctx, "backend", level, component, message)
	}()
}

// sanitizeMeta 截断并剥离 HTML 标签
func sanitizeMeta(raw string) string {
	cleaned := tagPattern.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > maxMetaLength {
		cleaned = cleaned[:maxMetaLength]
	}
	return cleaned
}
