package model

import (
	"time"
)

// ClickEvent 一次重定向产生的点击记录，内嵌于 ShortLink，按时间顺序只追加
type ClickEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortLinkID uint      `gorm:"not null;index" json:"short_link_id"`
	ClickedAt   time.Time `json:"clicked_at"`
	IPAddress   string    `gorm:"size:45" json:"ip_address"`
	Referer     string    `gorm:"type:text" json:"referer,omitempty"`
	UserAgent   string    `gorm:"type:text" json:"user_agent,omitempty"`
	Country     string    `gorm:"size:100" json:"country,omitempty"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}
