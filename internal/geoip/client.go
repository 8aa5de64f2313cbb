package geoip

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"shortlink-service/internal/config"

	"go.uber.org/zap"
)

// Client IP 归属地查询客户端
// 纯尽力而为的外部协作方：任何失败（超时、非 200、解析错误）
// 都只返回空字符串并记录调试日志，绝不影响重定向主流程。
type Client struct {
	endpoint   string
	enabled    bool
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient 创建查询客户端
func NewClient(cfg config.GeoIP, logger *zap.SugaredLogger) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		enabled:  cfg.Enabled && cfg.Endpoint != "",
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		},
		logger: logger.Named("geoip"),
	}
}

type lookupResponse struct {
	CountryCode string `json:"countryCode"`
}

// Country 查询 IP 对应的国家代码，失败时返回空字符串
func (c *Client) Country(ip string) string {
	if !c.enabled || ip == "" {
		return ""
	}

	// 内网与回环地址查不出归属地，直接短路
	if parsed := net.ParseIP(ip); parsed != nil {
		if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
			return ""
		}
	}

	resp, err := c.httpClient.Get(fmt.Sprintf(c.endpoint, ip))
	if err != nil {
		c.logger.Debugf("归属地查询失败: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debugf("归属地查询返回 %d", resp.StatusCode)
		return ""
	}

	var result lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Debugf("归属地响应解析失败: %v", err)
		return ""
	}
	return result.CountryCode
}
