package dto

import (
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

// RecordOperationRequest 记录文件操作请求
type RecordOperationRequest struct {
	OperationType  string `json:"operation_type" binding:"required,operation_type"`
	FileSizeBytes  int64  `json:"file_size_bytes" binding:"required,gt=0"`
	FileCount      int    `json:"file_count" binding:"omitempty,gte=1"`
	InputFilename  string `json:"input_filename,omitempty" binding:"omitempty,max=255"`
	OutputFilename string `json:"output_filename,omitempty" binding:"omitempty,max=255"`
}

// ToUsage 转换为评估请求，file_count 缺省为 1
func (r *RecordOperationRequest) ToUsage() usage.Request {
	count := r.FileCount
	if count == 0 {
		count = 1
	}
	return usage.Request{
		OperationType:  usage.OperationType(r.OperationType),
		FileSizeBytes:  r.FileSizeBytes,
		FileCount:      count,
		InputFilename:  r.InputFilename,
		OutputFilename: r.OutputFilename,
	}
}

// CountersAfter 操作后的计数器
type CountersAfter struct {
	DailyFilesUsed      int   `json:"daily_files_used"`
	MonthlyFilesUsed    int   `json:"monthly_files_used"`
	TotalProcessedBytes int64 `json:"total_processed_bytes"`
}

// OperationResult 账本事务返回给调用方的结果
type OperationResult struct {
	OperationID   string             `json:"operation_id,omitempty"`
	Accepted      bool               `json:"accepted"`
	DenialReason  usage.DenialReason `json:"denial_reason"`
	Message       string             `json:"message,omitempty"`
	CostCents     int64              `json:"cost_cents"`
	CountersAfter CountersAfter      `json:"counters_after"`
}

// OperationInfo 操作历史条目
type OperationInfo struct {
	ID             string `json:"id"`
	OperationType  string `json:"operation_type"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
	FileCount      int    `json:"file_count"`
	InputFilename  string `json:"input_filename,omitempty"`
	OutputFilename string `json:"output_filename,omitempty"`
	Accepted       bool   `json:"accepted"`
	DenialReason   string `json:"denial_reason,omitempty"`
	CostCents      int64  `json:"cost_cents"`
	CreatedAt      string `json:"created_at"`
}

// ListOperationsQuery 操作历史分页参数
type ListOperationsQuery struct {
	Page     int `form:"page" binding:"omitempty,gte=1"`
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}
