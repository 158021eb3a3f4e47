package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
)

// OperationRepository 操作历史，只追加不修改
type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

func (r *OperationRepository) Append(ctx context.Context, record *model.OperationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *OperationRepository) GetByID(ctx context.Context, id string) (*model.OperationRecord, error) {
	var record model.OperationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser 按时间倒序分页
func (r *OperationRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]model.OperationRecord, int64, error) {
	var records []model.OperationRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.OperationRecord{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// CountAccepted 已接受的操作数
func (r *OperationRepository) CountAccepted(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OperationRecord{}).
		Where("user_id = ? AND accepted = ?", userID, true).
		Count(&count).Error
	return count, err
}
