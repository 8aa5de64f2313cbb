package model

import (
	"time"
)

// ShortLink 短链接模型
// ShortCode 与 OriginalURL 创建后不可变；ClickCount 只增不减，
// 始终等于关联的 ClickEvent 条数。
type ShortLink struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	ShortCode   string       `gorm:"size:20;uniqueIndex;not null" json:"short_code"`
	OriginalURL string       `gorm:"type:text;not null" json:"original_url"`
	ClickCount  int64        `gorm:"default:0" json:"click_count"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `gorm:"not null;index" json:"expires_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Clicks      []ClickEvent `gorm:"foreignKey:ShortLinkID" json:"clicks,omitempty"`
}

// TableName 指定表名
func (ShortLink) TableName() string {
	return "short_links"
}

// Expired 判断链接在 now 时刻是否已过期
// 存储层的被动清理是异步的，过期记录可能仍然物理存在，
// 因此存活判断只能依赖这个时间戳比较。
func (s *ShortLink) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
