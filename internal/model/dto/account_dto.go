package dto

// CreateAccountRequest 开户请求
type CreateAccountRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// ChangeTierRequest 变更套餐请求
type ChangeTierRequest struct {
	Tier string `json:"tier" binding:"required,tier"`
}

// AccountInfo 账户信息（返回给前端）
type AccountInfo struct {
	UserID                  string `json:"user_id"`
	Email                   string `json:"email,omitempty"`
	SubscriptionTier        string `json:"subscription_tier"`
	SubscriptionPeriodStart string `json:"subscription_period_start"`
	SubscriptionPeriodEnd   string `json:"subscription_period_end"`
	CreatedAt               string `json:"created_at,omitempty"`
}

// Stats 仪表盘用量投影
type Stats struct {
	Tier                string `json:"tier"`
	TierDisplayName     string `json:"tier_display_name"`
	DailyUsed           int    `json:"daily_used"`
	DailyLimit          int    `json:"daily_limit"`
	DailyRemaining      int    `json:"daily_remaining"`
	MonthlyUsed         int    `json:"monthly_used"`
	MonthlyLimit        int    `json:"monthly_limit"`
	MonthlyRemaining    int    `json:"monthly_remaining"`
	MaxFileSize         int64  `json:"max_file_size"`
	MaxBatchSize        int    `json:"max_batch_size"`
	TotalProcessedBytes int64  `json:"total_processed_bytes"`
	TotalOperations     int64  `json:"total_operations"`
	PeriodEnd           string `json:"period_end"`
	DaysUntilRenewal    int    `json:"days_until_renewal"`
}
