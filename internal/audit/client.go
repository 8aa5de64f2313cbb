package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"shortlink-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenSafetyMargin 令牌临近过期前的提前换发窗口
const tokenSafetyMargin = 30 * time.Second

// backoffBase 重试退避的起始间隔，按次数翻倍
const backoffBase = 200 * time.Millisecond

// Client 远程审计日志客户端
// 发送是旁路行为：按需换发 Bearer 令牌并缓存到临近过期，
// 投递失败按指数退避做有限次重试，最终失败只记录本地日志，
// 永远不会阻塞或拖垮主请求路径（调用方以 goroutine 调用 Log）。
type Client struct {
	cfg        config.Audit
	httpClient *http.Client
	logger     *zap.SugaredLogger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient 创建审计客户端，未启用时 Log 是空操作
func NewClient(cfg config.Audit, logger *zap.SugaredLogger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		},
		logger: logger.Named("audit"),
	}
}

type logPayload struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// Log 发送一条审计日志
// 所有失败都被吞掉，只通过本地日志暴露。调用方应在独立的
// goroutine 中调用，并传入带超时的 context。
func (c *Client) Log(ctx context.Context, stack, level, component, message string) {
	if !c.cfg.Enabled || c.cfg.BaseURL == "" {
		return
	}

	body, err := json.Marshal(logPayload{Stack: stack, Level: level, Package: component, Message: message})
	if err != nil {
		c.logger.Errorf("审计日志序列化失败: %v", err)
		return
	}

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.logger.Warnf("审计日志投递被取消: %v", ctx.Err())
				return
			}
		}

		if err = c.send(ctx, body); err == nil {
			return
		}
		c.logger.Debugf("审计日志投递失败 (%d/%d): %v", attempt+1, c.cfg.MaxRetries, err)
	}
	c.logger.Warnf("审计日志投递最终失败: %v", err)
}

func (c *Client) send(ctx context.Context, body []byte) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.LogPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// 鉴权失效时丢弃缓存令牌，下次投递重新换发
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
		}
		return fmt.Errorf("审计服务返回 %d", resp.StatusCode)
	}
	return nil
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
}

// bearerToken 返回缓存的令牌，临近过期或缺失时重新换发
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-tokenSafetyMargin)) {
		return c.token, nil
	}

	body, err := json.Marshal(authRequest{ClientID: c.cfg.ClientID, ClientSecret: c.cfg.ClientSecret})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.AuthPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("审计服务鉴权返回 %d", resp.StatusCode)
	}

	var result authResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("审计服务未返回令牌")
	}

	c.token = result.AccessToken
	c.tokenExp = tokenExpiry(result.AccessToken)
	return c.token, nil
}

// tokenExpiry 从 JWT 的 exp 声明读取过期时间（不校验签名，
// 签名由审计服务自己校验）；解析失败时保守地给一个较短的缓存期
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(5 * time.Minute)
}
