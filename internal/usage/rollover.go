package usage

import (
	"time"
)

// BillingPeriod 订阅计费周期长度
const BillingPeriod = 30 * 24 * time.Hour

// Counters 用户用量计数器，daily/monthly 按周期重置，TotalProcessedBytes 永不重置
type Counters struct {
	DailyFilesUsed      int       `gorm:"not null;default:0" json:"daily_files_used"`
	LastDailyReset      time.Time `gorm:"not null" json:"last_daily_reset"`
	MonthlyFilesUsed    int       `gorm:"not null;default:0" json:"monthly_files_used"`
	LastMonthlyReset    time.Time `gorm:"not null" json:"last_monthly_reset"`
	PeriodStart         time.Time `gorm:"column:subscription_period_start;not null" json:"subscription_period_start"`
	PeriodEnd           time.Time `gorm:"column:subscription_period_end;not null" json:"subscription_period_end"`
	TotalProcessedBytes int64     `gorm:"not null;default:0" json:"total_processed_bytes"`
}

// Date 返回 t 的 UTC 日历日（零点）
func Date(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyRolloverNeeded now 的 UTC 日期晚于上次每日重置日期
func DailyRolloverNeeded(c Counters, now time.Time) bool {
	return Date(now).After(Date(c.LastDailyReset))
}

// MonthlyRolloverNeeded now 已到达或越过周期结束时间
func MonthlyRolloverNeeded(c Counters, now time.Time) bool {
	return !now.Before(c.PeriodEnd)
}

// Rollover 记录一次 ApplyRollover 实际发生的重置
type Rollover struct {
	Daily   bool
	Monthly bool
}

// ApplyRollover 在读取计数器前应用所有待处理的周期重置
//
// 月度周期从原结束时间按整周期推进而不是从 now 重新起算，
// 长时间未使用的用户会一次跨过多个周期，结束时间始终落在 now 之后。
func ApplyRollover(c *Counters, now time.Time) Rollover {
	var r Rollover

	if DailyRolloverNeeded(*c, now) {
		c.DailyFilesUsed = 0
		c.LastDailyReset = Date(now)
		r.Daily = true
	}

	if c.PeriodEnd.IsZero() {
		// 未初始化的周期从 now 开始
		c.PeriodStart = now.UTC()
		c.PeriodEnd = c.PeriodStart.Add(BillingPeriod)
		return r
	}

	if MonthlyRolloverNeeded(*c, now) {
		periods := now.Sub(c.PeriodEnd)/BillingPeriod + 1
		c.PeriodStart = c.PeriodEnd.Add((periods - 1) * BillingPeriod)
		c.PeriodEnd = c.PeriodEnd.Add(periods * BillingPeriod)
		c.MonthlyFilesUsed = 0
		c.LastMonthlyReset = Date(now)
		r.Monthly = true
	}

	return r
}

// StartPeriod 从 now 开始一个新的计费周期（开户、变更套餐）
func StartPeriod(c *Counters, now time.Time) {
	c.PeriodStart = now.UTC()
	c.PeriodEnd = c.PeriodStart.Add(BillingPeriod)
	c.MonthlyFilesUsed = 0
	c.LastMonthlyReset = Date(now)
}

// DaysUntil 距离 end 的天数（向上取整，不为负）
func DaysUntil(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}
