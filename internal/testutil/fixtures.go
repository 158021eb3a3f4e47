package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/internal/model"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

var userSeq int64

// Now 测试使用的固定时间
var Now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// Clock 返回固定时间的时钟
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestAccount 创建测试账户，默认 free 等级、计数器为 0、周期从 Now 前 10 天开始
func TestAccount(t *testing.T, db *gorm.DB, opts ...func(*model.UserAccount)) *model.UserAccount {
	t.Helper()

	n := atomic.AddInt64(&userSeq, 1)
	start := Now.Add(-10 * 24 * time.Hour)
	account := &model.UserAccount{
		UserID:           fmt.Sprintf("user-%d-%d", time.Now().UnixNano()%100000, n),
		Email:            fmt.Sprintf("test_%d@example.com", n),
		SubscriptionTier: tier.Free,
		Counters: usage.Counters{
			LastDailyReset:   usage.Date(Now),
			LastMonthlyReset: usage.Date(start),
			PeriodStart:      start,
			PeriodEnd:        start.Add(usage.BillingPeriod),
		},
	}

	for _, opt := range opts {
		opt(account)
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return account
}

// WithUserID 设置用户 ID
func WithUserID(userID string) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.UserID = userID
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.Email = email
	}
}

// WithTier 设置订阅等级
func WithTier(tr tier.Tier) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.SubscriptionTier = tr
	}
}

// WithDailyUsed 设置今日已用文件数
func WithDailyUsed(used int) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.DailyFilesUsed = used
	}
}

// WithMonthlyUsed 设置本周期已用文件数
func WithMonthlyUsed(used int) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.MonthlyFilesUsed = used
	}
}

// WithProcessedBytes 设置累计处理字节数
func WithProcessedBytes(n int64) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.TotalProcessedBytes = n
	}
}

// WithLastDailyReset 设置上次每日重置日期
func WithLastDailyReset(d time.Time) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.LastDailyReset = usage.Date(d)
	}
}

// WithPeriod 设置计费周期
func WithPeriod(start, end time.Time) func(*model.UserAccount) {
	return func(a *model.UserAccount) {
		a.PeriodStart = start
		a.PeriodEnd = end
	}
}

// TestOperation 创建测试操作记录
func TestOperation(t *testing.T, db *gorm.DB, userID string, accepted bool, createdAt time.Time) *model.OperationRecord {
	t.Helper()

	n := atomic.AddInt64(&userSeq, 1)
	rec := &model.OperationRecord{
		ID:            fmt.Sprintf("op_test%020d", n),
		UserID:        userID,
		OperationType: usage.OperationCompress,
		FileSizeBytes: 1024,
		FileCount:     1,
		Accepted:      accepted,
		CreatedAt:     createdAt,
	}
	if !accepted {
		rec.DenialReason = usage.DenialDailyLimitExceeded
	}

	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("Failed to create test operation: %v", err)
	}

	return rec
}
