package model

import (
	"time"

	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

// OperationRecord 操作历史，每次评估写入一条，写入后不再修改
type OperationRecord struct {
	ID             string              `gorm:"primaryKey;size:40" json:"id"`
	UserID         string              `gorm:"size:64;not null;index:idx_operation_user_created" json:"user_id"`
	OperationType  usage.OperationType `gorm:"size:20;not null" json:"operation_type"`
	FileSizeBytes  int64               `gorm:"not null" json:"file_size_bytes"`
	FileCount      int                 `gorm:"not null" json:"file_count"`
	InputFilename  string              `gorm:"size:255" json:"input_filename,omitempty"`
	OutputFilename string              `gorm:"size:255" json:"output_filename,omitempty"`
	Accepted       bool                `gorm:"not null;index" json:"accepted"`
	DenialReason   usage.DenialReason  `gorm:"size:40" json:"denial_reason,omitempty"`
	CostCents      int64               `gorm:"not null;default:0" json:"cost_cents"`
	CreatedAt      time.Time           `gorm:"index:idx_operation_user_created" json:"created_at"`
}

func (OperationRecord) TableName() string {
	return "operation_records"
}
