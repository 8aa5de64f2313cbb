package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// 主配置结构 - 简化命名
type Config struct {
	App       App       `yaml:"app"`
	Server    Server    `yaml:"server"`
	Database  DB        `yaml:"database"`
	Cache     Cache     `yaml:"cache"`
	Auth      Auth      `yaml:"auth"`
	RateLimit Limit     `yaml:"rate_limit"`
	ShortLink ShortLink `yaml:"shortlink"`
	GeoIP     GeoIP     `yaml:"geoip"`
	Audit     Audit     `yaml:"audit"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
	BaseURL string `yaml:"base_url"` // 生成短链接时使用的外部地址，为空时回退到请求 Host
}

// 服务器配置
type Server struct {
	Port         int `yaml:"port"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

// 数据库配置
type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// 认证配置
type Auth struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// 短码分配配置
type ShortLink struct {
	CodeLength             int `yaml:"code_length"`              // 初始短码长度，默认 6
	MaxRetriesPerLength    int `yaml:"max_retries_per_length"`   // 同一长度下的重试次数，默认 5
	MaxLengthEscalations   int `yaml:"max_length_escalations"`   // 冲突后允许升级长度的次数，默认 2
	DefaultValidityMinutes int `yaml:"default_validity_minutes"` // 未指定有效期时的默认值，默认 30
	SweepIntervalSeconds   int `yaml:"sweep_interval_seconds"`   // 过期记录被动清理周期，默认 60
}

// 地理位置查询配置（外部协作方，尽力而为）
type GeoIP struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"` // 例如 http://ip-api.com/json/%s
	TimeoutMillis int    `yaml:"timeout_millis"`
}

// 远程审计日志配置（外部协作方，发送失败不影响主流程）
type Audit struct {
	Enabled       bool   `yaml:"enabled"`
	BaseURL       string `yaml:"base_url"`
	AuthPath      string `yaml:"auth_path"`
	LogPath       string `yaml:"log_path"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	MaxRetries    int    `yaml:"max_retries"`
	TimeoutMillis int    `yaml:"timeout_millis"`
}

// 加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 为缺省项填充默认值，保证各组件拿到的配置总是可用的
func (c *Config) applyDefaults() {
	if c.ShortLink.CodeLength == 0 {
		c.ShortLink.CodeLength = 6
	}
	if c.ShortLink.MaxRetriesPerLength == 0 {
		c.ShortLink.MaxRetriesPerLength = 5
	}
	if c.ShortLink.MaxLengthEscalations == 0 {
		c.ShortLink.MaxLengthEscalations = 2
	}
	if c.ShortLink.DefaultValidityMinutes == 0 {
		c.ShortLink.DefaultValidityMinutes = 30
	}
	if c.ShortLink.SweepIntervalSeconds == 0 {
		c.ShortLink.SweepIntervalSeconds = 60
	}
	if c.GeoIP.TimeoutMillis == 0 {
		c.GeoIP.TimeoutMillis = 800
	}
	if c.Audit.MaxRetries == 0 {
		c.Audit.MaxRetries = 3
	}
	if c.Audit.TimeoutMillis == 0 {
		c.Audit.TimeoutMillis = 2000
	}
}
