package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
)

// AccountMutator 在行锁内接收当前账户并原地修改，返回需要同事务追加的操作记录（可为 nil）
type AccountMutator func(account *model.UserAccount) (*model.OperationRecord, error)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.UserAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*model.UserAccount, error) {
	var account model.UserAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserAccount{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// AtomicUpdate 对 user_id 对应的行执行原子的 读取-修改-写入
//
// 行通过 SELECT ... FOR UPDATE 锁定（SQLite 无行锁，由单写者串行化），
// 账户变更与操作记录在同一事务内提交，任一步失败整体回滚。
// 账户未变化时不写回。
func (r *AccountRepository) AtomicUpdate(ctx context.Context, userID string, mutate AccountMutator) (*model.UserAccount, error) {
	var updated model.UserAccount

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.UserAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&account).Error
		if err != nil {
			return err
		}

		before := account
		record, err := mutate(&account)
		if err != nil {
			return err
		}

		if account != before {
			account.ID = before.ID
			account.UserID = before.UserID
			if err := tx.Save(&account).Error; err != nil {
				return err
			}
		}

		if record != nil {
			if err := NewOperationRepository(tx).Append(ctx, record); err != nil {
				return err
			}
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// ListAll 分批遍历账户（迁移、运维脚本使用）
func (r *AccountRepository) ListAll(ctx context.Context, batchSize int, fn func([]model.UserAccount) error) error {
	var batch []model.UserAccount
	return r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
