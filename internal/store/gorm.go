package store

import (
	"context"
	"errors"
	"time"

	"shortlink-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormStore 基于 gorm 的 LinkStore 实现
// 依赖 gorm.Config{TranslateError: true}，将驱动层错误
// 统一翻译为 gorm.ErrDuplicatedKey / gorm.ErrRecordNotFound。
type GormStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewGormStore 创建存储实例
func NewGormStore(db *gorm.DB, logger *zap.SugaredLogger) *GormStore {
	return &GormStore{db: db, logger: logger.Named("link_store")}
}

func (s *GormStore) Create(ctx context.Context, link *model.ShortLink) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *GormStore) FindByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (s *GormStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AppendClick 追加点击并递增计数，两个写操作放在同一事务里，
// 保证 click_count 始终等于点击记录条数
func (s *GormStore) AppendClick(ctx context.Context, code string, click *model.ClickEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link model.ShortLink
		if err := tx.Where("short_code = ?", code).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		click.ShortLinkID = link.ID
		if err := tx.Create(click).Error; err != nil {
			return err
		}

		return tx.Model(&model.ShortLink{}).Where("id = ?", link.ID).
			UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error
	})
}

func (s *GormStore) ListClicks(ctx context.Context, code string, offset, limit int) ([]model.ClickEvent, error) {
	link, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var clicks []model.ClickEvent
	err = s.db.WithContext(ctx).
		Where("short_link_id = ?", link.ID).
		Order("clicked_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&clicks).Error
	if err != nil {
		return nil, err
	}
	return clicks, nil
}

func (s *GormStore) ListLinks(ctx context.Context) ([]model.ShortLink, error) {
	var links []model.ShortLink
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *GormStore) SetActive(ctx context.Context, code string, active bool) error {
	result := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("short_code = ?", code).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link model.ShortLink
		if err := tx.Where("short_code = ?", code).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("short_link_id = ?", link.ID).Delete(&model.ClickEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&link).Error
	})
}

// PurgeExpired 被动过期清理：删除 expires_at 早于 now 的记录及其点击
func (s *GormStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.ShortLink{}).
			Where("expires_at < ?", now).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("short_link_id IN ?", ids).Delete(&model.ClickEvent{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.ShortLink{})
		purged = result.RowsAffected
		return result.Error
	})
	return purged, err
}
