package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.jetify.com/typeid/v2"
	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/model"
	"github.com/Calum-Kerr/revisepdf-front/internal/model/dto"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/pubsub"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/queue"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidRequest     = usage.ErrInvalidRequest
)

const operationIDPrefix = "op"

// UsagePublisher 用量变更广播
type UsagePublisher interface {
	PublishUsage(ctx context.Context, msg *pubsub.UsageMessage) error
}

// AlertPusher 配额提醒任务队列
type AlertPusher interface {
	Push(ctx context.Context, msg *queue.AlertMessage) error
}

// LedgerService 账本事务：周期重置、评估、计数器更新、记录追加在同一事务内完成
type LedgerService struct {
	accountRepo   *repository.AccountRepository
	operationRepo *repository.OperationRepository
	catalog       *tier.Catalog
	publisher     UsagePublisher
	alerts        AlertPusher
	cfg           *config.Config
	now           func() time.Time
}

// NewLedgerService publisher 和 alerts 可为 nil
func NewLedgerService(
	accountRepo *repository.AccountRepository,
	operationRepo *repository.OperationRepository,
	catalog *tier.Catalog,
	publisher UsagePublisher,
	alerts AlertPusher,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		accountRepo:   accountRepo,
		operationRepo: operationRepo,
		catalog:       catalog,
		publisher:     publisher,
		alerts:        alerts,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟（测试使用）
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// RecordOperation 评估并记录一次操作
//
// 拒绝不是错误：返回 Accepted=false 和拒绝原因，同时写入一条审计记录。
// 只有账户不存在、等级非法或存储失败时返回 error，失败时不会有任何部分写入。
func (s *LedgerService) RecordOperation(ctx context.Context, userID string, req usage.Request) (*dto.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		result usage.Result
		record *model.OperationRecord
		limits tier.Limits
	)

	account, err := s.accountRepo.AtomicUpdate(ctx, userID, func(a *model.UserAccount) (*model.OperationRecord, error) {
		var err error
		limits, err = s.catalog.LimitsFor(a.SubscriptionTier)
		if err != nil {
			return nil, err
		}

		usage.ApplyRollover(&a.Counters, now)
		result = usage.Evaluate(a.Counters, limits, req)
		if result.Accepted {
			a.Apply(result.Deltas)
		}

		id, err := typeid.Generate(operationIDPrefix)
		if err != nil {
			return nil, err
		}

		record = &model.OperationRecord{
			ID:             id.String(),
			UserID:         a.UserID,
			OperationType:  req.OperationType,
			FileSizeBytes:  req.FileSizeBytes,
			FileCount:      req.FileCount,
			InputFilename:  req.InputFilename,
			OutputFilename: req.OutputFilename,
			Accepted:       result.Accepted,
			DenialReason:   result.DenialReason,
			CostCents:      result.CostCents,
			CreatedAt:      now,
		}
		return record, nil
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("operation_type", string(req.OperationType)).Msg("ledger transaction failed")
		return nil, mapStoreError(err)
	}

	log.Info().
		Str("user_id", userID).
		Str("operation_id", record.ID).
		Str("operation_type", string(req.OperationType)).
		Bool("accepted", result.Accepted).
		Str("denial_reason", string(result.DenialReason)).
		Int64("cost_cents", result.CostCents).
		Msg("operation evaluated")

	resp := toOperationResult(record.ID, result, account.Counters)

	s.publish(ctx, account, record)
	if result.Accepted {
		s.alertIfExhausted(ctx, account, limits, record.ID)
	}

	return resp, nil
}

// Preview 按当前状态预估一次操作的判定和价格，不写入任何数据
func (s *LedgerService) Preview(ctx context.Context, userID string, req usage.Request) (*dto.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, limits, err := s.effectiveAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := usage.Evaluate(account.Counters, limits, req)
	counters := account.Counters
	if result.Accepted {
		counters.Apply(result.Deltas)
	}

	return toOperationResult("", result, counters), nil
}

// GetStats 仪表盘用量投影
//
// 只读：待执行的周期重置只在内存中应用，不写回存储，持久化的重置只发生在 RecordOperation。
func (s *LedgerService) GetStats(ctx context.Context, userID string) (*dto.Stats, error) {
	now := s.now()
	account, limits, err := s.effectiveAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.operationRepo.CountAccepted(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	c := account.Counters
	return &dto.Stats{
		Tier:                string(account.SubscriptionTier),
		TierDisplayName:     account.SubscriptionTier.DisplayName(),
		DailyUsed:           c.DailyFilesUsed,
		DailyLimit:          limits.DailyFileLimit,
		DailyRemaining:      usage.Remaining(limits.DailyFileLimit, c.DailyFilesUsed),
		MonthlyUsed:         c.MonthlyFilesUsed,
		MonthlyLimit:        limits.MonthlyFileLimit,
		MonthlyRemaining:    usage.Remaining(limits.MonthlyFileLimit, c.MonthlyFilesUsed),
		MaxFileSize:         limits.MaxFileSizeBytes,
		MaxBatchSize:        limits.MaxBatchSize,
		TotalProcessedBytes: c.TotalProcessedBytes,
		TotalOperations:     total,
		PeriodEnd:           c.PeriodEnd.Format(time.RFC3339),
		DaysUntilRenewal:    usage.DaysUntil(c.PeriodEnd, now),
	}, nil
}

// ListOperations 操作历史，按时间倒序，包含被拒绝的记录
func (s *LedgerService) ListOperations(ctx context.Context, userID string, page, pageSize int) ([]dto.OperationInfo, int64, error) {
	exists, err := s.accountRepo.ExistsByUserID(ctx, userID)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	if !exists {
		return nil, 0, ErrAccountNotFound
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := s.operationRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}

	items := make([]dto.OperationInfo, 0, len(records))
	for _, r := range records {
		items = append(items, dto.OperationInfo{
			ID:             r.ID,
			OperationType:  string(r.OperationType),
			FileSizeBytes:  r.FileSizeBytes,
			FileCount:      r.FileCount,
			InputFilename:  r.InputFilename,
			OutputFilename: r.OutputFilename,
			Accepted:       r.Accepted,
			DenialReason:   string(r.DenialReason),
			CostCents:      r.CostCents,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		})
	}

	return items, total, nil
}

// effectiveAccount 读取账户并在内存中应用周期重置
func (s *LedgerService) effectiveAccount(ctx context.Context, userID string) (*model.UserAccount, tier.Limits, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, tier.Limits{}, mapStoreError(err)
	}

	limits, err := s.catalog.LimitsFor(account.SubscriptionTier)
	if err != nil {
		return nil, tier.Limits{}, err
	}

	usage.ApplyRollover(&account.Counters, s.now())
	return account, limits, nil
}

func (s *LedgerService) publish(ctx context.Context, account *model.UserAccount, record *model.OperationRecord) {
	if s.publisher == nil {
		return
	}

	msg := &pubsub.UsageMessage{
		UserID:              account.UserID,
		OperationID:         record.ID,
		Accepted:            record.Accepted,
		DenialReason:        string(record.DenialReason),
		DailyFilesUsed:      account.DailyFilesUsed,
		MonthlyFilesUsed:    account.MonthlyFilesUsed,
		TotalProcessedBytes: account.TotalProcessedBytes,
		CostCents:           record.CostCents,
	}
	if err := s.publisher.PublishUsage(ctx, msg); err != nil {
		log.Warn().Err(err).Str("user_id", account.UserID).Msg("failed to publish usage update")
	}
}

// alertIfExhausted 本次操作恰好用完每日或周期配额时推送提醒
func (s *LedgerService) alertIfExhausted(ctx context.Context, account *model.UserAccount, limits tier.Limits, operationID string) {
	if s.alerts == nil || s.cfg == nil || !s.cfg.Ledger.AlertsEnabled {
		return
	}

	msg := &queue.AlertMessage{
		UserID:      account.UserID,
		Email:       account.Email,
		Tier:        string(account.SubscriptionTier),
		OperationID: operationID,
	}

	switch {
	case limits.HasDailyLimit() && account.DailyFilesUsed == limits.DailyFileLimit:
		msg.Kind = queue.AlertDailyLimitReached
		msg.Used, msg.Limit = account.DailyFilesUsed, limits.DailyFileLimit
		msg.PeriodEnd = usage.Date(account.LastDailyReset).Add(24 * time.Hour)
	case limits.HasMonthlyLimit() && account.MonthlyFilesUsed == limits.MonthlyFileLimit:
		msg.Kind = queue.AlertMonthlyLimitReached
		msg.Used, msg.Limit = account.MonthlyFilesUsed, limits.MonthlyFileLimit
		msg.PeriodEnd = account.PeriodEnd
	default:
		return
	}

	if err := s.alerts.Push(ctx, msg); err != nil {
		log.Warn().Err(err).Str("user_id", account.UserID).Str("kind", string(msg.Kind)).Msg("failed to push limit alert")
	}
}

func toOperationResult(operationID string, result usage.Result, c usage.Counters) *dto.OperationResult {
	return &dto.OperationResult{
		OperationID:  operationID,
		Accepted:     result.Accepted,
		DenialReason: result.DenialReason,
		Message:      result.DenialReason.Message(),
		CostCents:    result.CostCents,
		CountersAfter: dto.CountersAfter{
			DailyFilesUsed:      c.DailyFilesUsed,
			MonthlyFilesUsed:    c.MonthlyFilesUsed,
			TotalProcessedBytes: c.TotalProcessedBytes,
		},
	}
}

// mapStoreError 把存储层错误归类为 AccountNotFound / StorageUnavailable，业务错误原样返回
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrAccountNotFound
	case errors.Is(err, tier.ErrInvalidTier),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrStorageUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}
