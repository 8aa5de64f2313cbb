package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"shortlink-service/internal/validator"

	"go.uber.org/zap"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultCodeLength 是生成短码的默认长度
	DefaultCodeLength = 6
)

var (
	// ErrExhausted 所有重试与长度升级均失败，短码空间疑似耗尽或存储持续冲突
	ErrExhausted = errors.New("短码分配失败")
	// ErrCodeTaken 自定义短码已被占用，与语法错误是两种不同的失败，
	// 调用方分别映射为 409 与 400
	ErrCodeTaken = errors.New("短码已被占用")
)

// CodeProber 短码占用探测，由存储层实现
type CodeProber interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// Config 分配器参数
type Config struct {
	Length               int // 初始长度，限制在 4-20 之间
	MaxRetriesPerLength  int // 同一长度下的随机重试次数
	MaxLengthEscalations int // 允许的长度升级次数
}

// Allocator 短码分配器
// 生成是概率性的：随机抽取候选短码并向存储探测占用情况，
// 冲突则在当前长度内重试，重试耗尽后升级长度再试。
// 最终的唯一性由存储层的唯一索引兜底，并发竞争穿透探测时
// 会表现为创建时的重复键错误。
type Allocator struct {
	prober CodeProber
	cfg    Config
	logger *zap.SugaredLogger
}

// NewAllocator 创建分配器，非法参数回退到默认值
func NewAllocator(prober CodeProber, cfg Config, logger *zap.SugaredLogger) *Allocator {
	if cfg.Length < validator.MinCodeLength || cfg.Length > validator.MaxCodeLength {
		cfg.Length = DefaultCodeLength
	}
	if cfg.MaxRetriesPerLength <= 0 {
		cfg.MaxRetriesPerLength = 5
	}
	if cfg.MaxLengthEscalations < 0 {
		cfg.MaxLengthEscalations = 2
	}
	return &Allocator{
		prober: prober,
		cfg:    cfg,
		logger: logger.Named("shortcode_allocator"),
	}
}

// Allocate 生成一个当前未被占用的短码
// 每个长度档位内最多重试 MaxRetriesPerLength 次，耗尽后长度加一
// 并重置重试计数，最多升级 MaxLengthEscalations 次，全部失败
// 返回 ErrExhausted。
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	length := a.cfg.Length
	for tier := 0; tier <= a.cfg.MaxLengthEscalations; tier++ {
		for attempt := 0; attempt < a.cfg.MaxRetriesPerLength; attempt++ {
			code, err := randomCode(length)
			if err != nil {
				return "", err
			}

			exists, err := a.prober.ExistsByCode(ctx, code)
			if err != nil {
				return "", err
			}
			if !exists {
				return code, nil
			}
			a.logger.Debugf("短码 %s 已被占用，重试 (%d/%d)", code, attempt+1, a.cfg.MaxRetriesPerLength)
		}

		if length < validator.MaxCodeLength {
			length++
			a.logger.Warnf("长度 %d 的重试已耗尽，升级到 %d", length-1, length)
		}
	}

	a.logger.Error("全部重试与长度升级均失败，短码空间疑似耗尽")
	return "", ErrExhausted
}

// Reserve 校验自定义短码并探测占用情况
// 语法错误返回 validator.ErrInvalid，被占用返回 ErrCodeTaken。
func (a *Allocator) Reserve(ctx context.Context, raw string) (string, error) {
	code, err := validator.ValidateCustomCode(raw)
	if err != nil {
		return "", err
	}

	exists, err := a.prober.ExistsByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrCodeTaken
	}
	return code, nil
}

// randomCode 使用加密安全的随机数生成器生成一个给定长度的短码
func randomCode(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(Charset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}
