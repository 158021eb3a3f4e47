package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelUsageUpdates = "usage_updates"
)

// 消息类型
const (
	TypeUsageUpdated    = "usage_updated"
	TypeOperationDenied = "operation_denied"
)

// UsageMessage 用量变更消息，账本事务提交后发布
type UsageMessage struct {
	Type                string `json:"type"`
	UserID              string `json:"user_id"`
	OperationID         string `json:"operation_id"`
	Accepted            bool   `json:"accepted"`
	DenialReason        string `json:"denial_reason,omitempty"`
	DailyFilesUsed      int    `json:"daily_files_used"`
	MonthlyFilesUsed    int    `json:"monthly_files_used"`
	TotalProcessedBytes int64  `json:"total_processed_bytes"`
	CostCents           int64  `json:"cost_cents,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishUsage 发布用量消息，Type 为空时按是否接受自动填充
func (p *Publisher) PublishUsage(ctx context.Context, msg *UsageMessage) error {
	if msg.Type == "" {
		msg.Type = TypeUsageUpdated
		if !msg.Accepted {
			msg.Type = TypeOperationDenied
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal usage message: %w", err)
	}

	return p.client.Publish(ctx, ChannelUsageUpdates, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅用量消息，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*UsageMessage)) error {
	ps := s.client.Subscribe(ctx, ChannelUsageUpdates)
	defer ps.Close()

	// 等待订阅确认，保证返回前的发布不会丢失
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var usageMsg UsageMessage
			if err := json.Unmarshal([]byte(msg.Payload), &usageMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&usageMsg)
		}
	}
}
