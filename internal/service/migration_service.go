package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

// MigrationReport 迁移结果统计
type MigrationReport struct {
	Scanned      int `json:"scanned"`
	Created      int `json:"created"`
	Skipped      int `json:"skipped"`       // 已存在新账户
	Invalid      int `json:"invalid"`       // 缺少 user_id
	TierFallback int `json:"tier_fallback"` // 等级无法识别，按 free 迁移
}

// MigrationService 把旧版 profiles 迁移到 user_accounts
type MigrationService struct {
	legacyRepo  *repository.LegacyProfileRepository
	accountRepo *repository.AccountRepository
	batchSize   int
	now         func() time.Time
}

func NewMigrationService(legacyRepo *repository.LegacyProfileRepository, accountRepo *repository.AccountRepository) *MigrationService {
	return &MigrationService{
		legacyRepo:  legacyRepo,
		accountRepo: accountRepo,
		batchSize:   200,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟（测试使用）
func (s *MigrationService) WithClock(now func() time.Time) *MigrationService {
	s.now = now
	return s
}

// Run 执行迁移，dryRun 时只统计不写入
func (s *MigrationService) Run(ctx context.Context, dryRun bool) (*MigrationReport, error) {
	report := &MigrationReport{}
	now := s.now()

	err := s.legacyRepo.EachBatch(ctx, s.batchSize, func(profiles []model.LegacyProfile) error {
		for i := range profiles {
			if err := s.migrateOne(ctx, &profiles[i], now, dryRun, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, mapStoreError(err)
	}

	return report, nil
}

func (s *MigrationService) migrateOne(ctx context.Context, p *model.LegacyProfile, now time.Time, dryRun bool, report *MigrationReport) error {
	report.Scanned++

	if p.UserID == "" {
		report.Invalid++
		log.Warn().Int64("profile_id", p.ID).Msg("legacy profile without user_id")
		return nil
	}

	exists, err := s.accountRepo.ExistsByUserID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if exists {
		report.Skipped++
		return nil
	}

	account := LegacyAccount(p, now)
	if string(account.SubscriptionTier) != p.SubscriptionTier {
		report.TierFallback++
		log.Warn().Str("user_id", p.UserID).Str("tier", p.SubscriptionTier).Msg("unknown legacy tier, using free")
	}

	if !dryRun {
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return err
		}
	}
	report.Created++
	return nil
}

// LegacyAccount 由旧版 profile 构造新账户
//
// 旧版只记录累计字节数，计数器从零开始，计费周期从 now 开始；
// file_size_limit 不迁移，上限由等级目录决定。
func LegacyAccount(p *model.LegacyProfile, now time.Time) *model.UserAccount {
	account := NewAccount(p.UserID, p.Email, now)

	if tr, err := tier.Parse(p.SubscriptionTier); err == nil {
		account.SubscriptionTier = tr
	}
	if p.Usage > 0 {
		account.TotalProcessedBytes = p.Usage
	}
	if !p.CreatedAt.IsZero() {
		account.CreatedAt = p.CreatedAt
	}
	return account
}
