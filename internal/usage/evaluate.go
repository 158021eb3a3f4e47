package usage

import (
	"errors"
	"fmt"

	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

// ErrInvalidRequest 操作请求参数非法
var ErrInvalidRequest = errors.New("invalid operation request")

type OperationType string

const (
	OperationCompress OperationType = "compress"
	OperationMerge    OperationType = "merge"
	OperationSplit    OperationType = "split"
	OperationConvert  OperationType = "convert"
)

func (o OperationType) Valid() bool {
	switch o {
	case OperationCompress, OperationMerge, OperationSplit, OperationConvert:
		return true
	}
	return false
}

// Request 一次待评估的文件操作
type Request struct {
	OperationType  OperationType
	FileSizeBytes  int64
	FileCount      int
	InputFilename  string
	OutputFilename string
}

// Validate 检查请求自身的合法性（与套餐无关）
func (r Request) Validate() error {
	if !r.OperationType.Valid() {
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidRequest, r.OperationType)
	}
	if r.FileSizeBytes <= 0 {
		return fmt.Errorf("%w: file size must be positive", ErrInvalidRequest)
	}
	if r.FileCount < 1 {
		return fmt.Errorf("%w: file count must be at least 1", ErrInvalidRequest)
	}
	return nil
}

// DenialReason 拒绝原因，拒绝是正常的评估结果而不是错误
type DenialReason string

const (
	DenialNone                 DenialReason = ""
	DenialFileTooLarge         DenialReason = "file_too_large"
	DenialBatchTooLarge        DenialReason = "batch_too_large"
	DenialDailyLimitExceeded   DenialReason = "daily_limit_exceeded"
	DenialMonthlyLimitExceeded DenialReason = "monthly_limit_exceeded"
)

// Message 面向用户的提示文案
func (d DenialReason) Message() string {
	switch d {
	case DenialFileTooLarge:
		return "File exceeds the maximum size allowed by your plan"
	case DenialBatchTooLarge:
		return "Too many files for a single operation on your plan"
	case DenialDailyLimitExceeded:
		return "Daily file limit reached, upgrade to process more files today"
	case DenialMonthlyLimitExceeded:
		return "Monthly file limit reached, upgrade to process more files this period"
	default:
		return ""
	}
}

// Deltas 接受后需要应用到计数器的增量
type Deltas struct {
	Daily   int   `json:"daily,omitempty"`
	Monthly int   `json:"monthly,omitempty"`
	Bytes   int64 `json:"bytes"`
}

// Result 评估结果
type Result struct {
	Accepted     bool         `json:"accepted"`
	DenialReason DenialReason `json:"denial_reason,omitempty"`
	CostCents    int64        `json:"cost_cents"`
	Deltas       Deltas       `json:"counter_deltas"`
}

// Evaluate 纯函数：基于已完成周期重置的计数器、等级限制和请求给出判定
//
// 检查顺序：文件大小、批量大小、每日配额、每月配额，第一个失败的检查决定拒绝原因。
func Evaluate(c Counters, limits tier.Limits, req Request) Result {
	if req.FileSizeBytes > limits.MaxFileSizeBytes {
		return deny(DenialFileTooLarge)
	}
	if req.FileCount > limits.MaxBatchSize {
		return deny(DenialBatchTooLarge)
	}
	if limits.HasDailyLimit() && c.DailyFilesUsed+1 > limits.DailyFileLimit {
		return deny(DenialDailyLimitExceeded)
	}
	if limits.HasMonthlyLimit() && c.MonthlyFilesUsed+1 > limits.MonthlyFileLimit {
		return deny(DenialMonthlyLimitExceeded)
	}

	deltas := Deltas{Bytes: req.FileSizeBytes}
	if limits.HasDailyLimit() {
		deltas.Daily = 1
	}
	if limits.HasMonthlyLimit() {
		deltas.Monthly = 1
	}

	return Result{
		Accepted:  true,
		CostCents: Cost(limits, req),
		Deltas:    deltas,
	}
}

func deny(reason DenialReason) Result {
	return Result{DenialReason: reason}
}

// Cost 按量计费价格
//
// 文件大小按 10MB 向上取整计价并受单次上限约束，批量中第一个之后的每个文件另行计费。
// 非按量计费等级价格为 0。
func Cost(limits tier.Limits, req Request) int64 {
	if !limits.PayPerUse() {
		return 0
	}

	increments := (req.FileSizeBytes + tier.BillingIncrementBytes - 1) / tier.BillingIncrementBytes
	sizeCost := increments * limits.PricePer10MBCents
	if limits.MaxCostPerOperationCents > 0 && sizeCost > limits.MaxCostPerOperationCents {
		sizeCost = limits.MaxCostPerOperationCents
	}

	var batchCost int64
	if req.FileCount > 1 {
		batchCost = int64(req.FileCount-1) * limits.PricePerExtraBatchFileCents
	}

	return sizeCost + batchCost
}

// Apply 把增量加到计数器上
func (c *Counters) Apply(d Deltas) {
	c.DailyFilesUsed += d.Daily
	c.MonthlyFilesUsed += d.Monthly
	c.TotalProcessedBytes += d.Bytes
}

// Remaining 剩余额度，limit 为 0（无配额）时返回 -1
func Remaining(limit, used int) int {
	if limit <= 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
