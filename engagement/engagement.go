// Package engagement keeps view and download counters.
package engagement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// IncrementViews adds one view to a podcast. Every call counts.
func (s *Service) IncrementViews(ctx context.Context, podcastID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Podcast{}).
		Where("id = ?", podcastID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return store.Translate("podcast", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("podcast")
	}
	return nil
}

// IncrementDownload bumps the counter of (kind, itemID, userID) in a single
// upsert. userID is uuid.Nil for anonymous downloads. It returns the counter
// value after the increment.
func (s *Service) IncrementDownload(ctx context.Context, kind models.ItemKind, itemID, userID uuid.UUID) (int64, error) {
	if !kind.Valid() {
		return 0, apperrors.Validation("item_type", "item type must be podcast or episode")
	}
	userKey := ""
	if userID != uuid.Nil {
		userKey = userID.String()
	}

	row := models.Download{ItemKind: kind, ItemID: itemID, UserKey: userKey, Count: 1}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_kind"}, {Name: "item_id"}, {Name: "user_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"download_count": gorm.Expr("download_count + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, store.Translate("download", err)
	}

	var current models.Download
	err = s.db.WithContext(ctx).
		Where("item_kind = ? AND item_id = ? AND user_key = ?", kind, itemID, userKey).
		First(&current).Error
	if err != nil {
		return 0, store.Translate("download", err)
	}
	return current.Count, nil
}

// DownloadCount sums the counters of every user for one item.
func (s *Service) DownloadCount(ctx context.Context, kind models.ItemKind, itemID uuid.UUID) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Download{}).
		Where("item_kind = ? AND item_id = ?", kind, itemID).
		Select("COALESCE(SUM(download_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, store.Translate("download", err)
	}
	return total, nil
}
