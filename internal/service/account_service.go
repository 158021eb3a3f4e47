package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
	"github.com/Calum-Kerr/revisepdf-front/internal/model/dto"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

var (
	ErrAccountExists = errors.New("account already exists")
)

type AccountService struct {
	accountRepo *repository.AccountRepository
	catalog     *tier.Catalog
	now         func() time.Time
}

func NewAccountService(accountRepo *repository.AccountRepository, catalog *tier.Catalog) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		catalog:     catalog,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟（测试使用）
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// CreateAccount 开户：free 等级，计费周期从现在开始
func (s *AccountService) CreateAccount(ctx context.Context, userID, email string) (*dto.AccountInfo, error) {
	exists, err := s.accountRepo.ExistsByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if exists {
		return nil, ErrAccountExists
	}

	now := s.now()
	account := NewAccount(userID, email, now)

	if err := s.accountRepo.Create(ctx, account); err != nil {
		// 并发开户时唯一索引冲突
		if exists, existsErr := s.accountRepo.ExistsByUserID(ctx, userID); existsErr == nil && exists {
			return nil, ErrAccountExists
		}
		return nil, mapStoreError(err)
	}

	log.Info().Str("user_id", userID).Msg("account created")
	return toAccountInfo(account), nil
}

// NewAccount 构造一个新的 free 等级账户
func NewAccount(userID, email string, now time.Time) *model.UserAccount {
	account := &model.UserAccount{
		UserID:           userID,
		Email:            email,
		SubscriptionTier: tier.Free,
	}
	account.LastDailyReset = usage.Date(now)
	usage.StartPeriod(&account.Counters, now)
	return account
}

// GetAccount 账户信息
func (s *AccountService) GetAccount(ctx context.Context, userID string) (*dto.AccountInfo, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return toAccountInfo(account), nil
}

// ChangeTier 变更订阅等级：开始新的计费周期并清零周期计数，每日计数不变
func (s *AccountService) ChangeTier(ctx context.Context, userID, tierName string) (*dto.AccountInfo, error) {
	newTier, err := tier.Parse(tierName)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.LimitsFor(newTier); err != nil {
		return nil, err
	}

	now := s.now()
	var previous tier.Tier

	account, err := s.accountRepo.AtomicUpdate(ctx, userID, func(a *model.UserAccount) (*model.OperationRecord, error) {
		previous = a.SubscriptionTier
		usage.ApplyRollover(&a.Counters, now)
		a.SubscriptionTier = newTier
		usage.StartPeriod(&a.Counters, now)
		return nil, nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	log.Info().
		Str("user_id", userID).
		Str("from_tier", string(previous)).
		Str("to_tier", string(newTier)).
		Msg("subscription tier changed")

	return toAccountInfo(account), nil
}

func toAccountInfo(a *model.UserAccount) *dto.AccountInfo {
	info := &dto.AccountInfo{
		UserID:                  a.UserID,
		Email:                   a.Email,
		SubscriptionTier:        string(a.SubscriptionTier),
		SubscriptionPeriodStart: a.PeriodStart.Format(time.RFC3339),
		SubscriptionPeriodEnd:   a.PeriodEnd.Format(time.RFC3339),
	}
	if !a.CreatedAt.IsZero() {
		info.CreatedAt = a.CreatedAt.Format(time.RFC3339)
	}
	return info
}
