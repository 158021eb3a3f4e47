package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// AlertKind 提醒类型
type AlertKind string

const (
	AlertDailyLimitReached   AlertKind = "daily_limit_reached"
	AlertMonthlyLimitReached AlertKind = "monthly_limit_reached"
)

// AlertMessage 配额提醒任务，由 worker 消费并发送邮件
type AlertMessage struct {
	Kind        AlertKind `json:"kind"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Tier        string    `json:"tier"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	PeriodEnd   time.Time `json:"period_end"`
	OperationID string    `json:"operation_id"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将提醒加入队列
func (q *Queue) Push(ctx context.Context, msg *AlertMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取提醒（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*AlertMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg AlertMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
