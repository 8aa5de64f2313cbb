package validator

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxTTLMinutes 有效期上限，一年
	MaxTTLMinutes = 525600
	// MinCodeLength / MaxCodeLength 自定义短码的长度范围
	MinCodeLength = 4
	MaxCodeLength = 20
	// DefaultPageLimit / MaxPageLimit 分页参数的默认值与上限
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

// ErrInvalid 所有校验失败的哨兵错误，统一映射为 400
var ErrInvalid = errors.New("参数校验失败")

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateURL 校验并返回去除首尾空白后的原始链接
// 只接受显式的 http/https 协议；指向回环、未指定或内网地址的
// 链接一律拒绝（SSRF 防护）。校验是纯函数，不做 DNS 解析，
// 内网判断仅针对字面主机名与 IP 字面量。
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: 链接不能为空", ErrInvalid)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: 链接格式错误", ErrInvalid)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: 仅支持 http 或 https 协议", ErrInvalid)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: 链接缺少主机名", ErrInvalid)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", fmt.Errorf("%w: 不允许指向本机地址", ErrInvalid)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return "", fmt.Errorf("%w: 不允许指向内网地址", ErrInvalid)
		}
	}

	return trimmed, nil
}

// ValidateTTLMinutes 校验有效期（分钟）
// 未提供时返回默认值；必须为正数，且不超过一年；四舍五入取整。
func ValidateTTLMinutes(minutes *float64, defaultMinutes int) (int, error) {
	if minutes == nil {
		return defaultMinutes, nil
	}
	v := *minutes
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: 有效期必须是数字", ErrInvalid)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: 有效期必须大于 0", ErrInvalid)
	}
	if v > MaxTTLMinutes {
		return 0, fmt.Errorf("%w: 有效期不能超过一年", ErrInvalid)
	}
	return int(math.Round(v)), nil
}

// ValidateCustomCode 校验用户自定义短码：去除空白后必须是 4-20 位字母或数字
func ValidateCustomCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return "", fmt.Errorf("%w: 短码长度必须在 %d 到 %d 之间", ErrInvalid, MinCodeLength, MaxCodeLength)
	}
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: 短码只能包含字母和数字", ErrInvalid)
	}
	return code, nil
}

// ValidatePagination 校验分页参数，缺省时 page=1, limit=50
func ValidatePagination(pageStr, limitStr string) (page, limit int, err error) {
	page, limit = 1, DefaultPageLimit

	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: page 必须是不小于 1 的整数", ErrInvalid)
		}
	}
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxPageLimit {
			return 0, 0, fmt.Errorf("%w: limit 必须在 1 到 %d 之间", ErrInvalid, MaxPageLimit)
		}
	}
	return page, limit, nil
}
