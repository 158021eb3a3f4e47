package model

import (
	"time"

	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

// UserAccount 用户账户，计数器只能通过账本事务修改
type UserAccount struct {
	ID               int64     `gorm:"primaryKey" json:"-"`
	UserID           string    `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	Email            string    `gorm:"size:255" json:"email"`
	SubscriptionTier tier.Tier `gorm:"size:20;not null;default:free" json:"subscription_tier"`
	usage.Counters   `gorm:"embedded"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (UserAccount) TableName() string {
	return "user_accounts"
}
