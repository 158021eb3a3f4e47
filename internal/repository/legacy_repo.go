package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
)

// LegacyProfileRepository 只读访问旧版 profiles 表
type LegacyProfileRepository struct {
	db *gorm.DB
}

func NewLegacyProfileRepository(db *gorm.DB) *LegacyProfileRepository {
	return &LegacyProfileRepository{db: db}
}

func (r *LegacyProfileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LegacyProfile{}).Count(&count).Error
	return count, err
}

// EachBatch 分批遍历（按主键顺序）
func (r *LegacyProfileRepository) EachBatch(ctx context.Context, batchSize int, fn func([]model.LegacyProfile) error) error {
	var batch []model.LegacyProfile
	return r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
