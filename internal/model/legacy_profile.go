package model

import (
	"time"
)

// LegacyProfile 旧版 profiles 表，仅供一次性迁移读取
type LegacyProfile struct {
	ID               int64     `gorm:"primaryKey"`
	UserID           string    `gorm:"size:64;not null"`
	Email            string    `gorm:"size:255"`
	SubscriptionTier string    `gorm:"size:20"`
	Usage            int64     // 累计处理字节数
	FileSizeLimit    int64     // 旧版按字节存储的文件上限，新版由等级目录决定
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (LegacyProfile) TableName() string {
	return "profiles"
}
