package store

import (
	"context"
	"errors"
	"time"

	"shortlink-service/internal/model"
)

var (
	// ErrDuplicateCode 短码唯一索引冲突，区别于其他存储错误，
	// 调用方据此映射为 409 而不是 500
	ErrDuplicateCode = errors.New("短码已存在")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
)

// LinkStore 短链接存储接口
// 唯一性由存储层的唯一索引兜底保证；过期清理由 Sweeper 被动执行，
// 调用方不得依赖记录的物理缺失来判断过期。
type LinkStore interface {
	// Create 原子写入一条新记录，短码冲突时返回 ErrDuplicateCode
	Create(ctx context.Context, link *model.ShortLink) error
	// FindByCode 按短码查询，包含已过期但尚未被清理的记录
	FindByCode(ctx context.Context, code string) (*model.ShortLink, error)
	// ExistsByCode 短码占用探测，供分配器使用
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// AppendClick 在一个事务内追加点击记录并递增计数
	AppendClick(ctx context.Context, code string, click *model.ClickEvent) error
	// ListClicks 按时间顺序分页返回某条链接的点击记录
	ListClicks(ctx context.Context, code string, offset, limit int) ([]model.ClickEvent, error)
	// ListLinks 返回全部链接，按创建时间倒序
	ListLinks(ctx context.Context) ([]model.ShortLink, error)
	// SetActive 启用或禁用一条链接
	SetActive(ctx context.Context, code string, active bool) error
	// Delete 删除一条链接及其点击记录
	Delete(ctx context.Context, code string) error
	// PurgeExpired 物理删除 now 之前过期的记录，返回删除条数
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
