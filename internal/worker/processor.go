package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/email"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/queue"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

// ErrNoRecipient 提醒任务没有收件地址
var ErrNoRecipient = errors.New("alert has no recipient")

// Notifier 发送配额提醒
type Notifier interface {
	SendLimitReached(to string, n email.LimitNotice) error
}

// AlertSource 提醒任务来源，超时无任务时返回 nil, nil
type AlertSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.AlertMessage, error)
}

// Processor 配额提醒处理器
type Processor struct {
	notifier   Notifier
	cfg        *config.Config
	logger     zerolog.Logger
	popTimeout time.Duration
	retryPause time.Duration
}

// NewProcessor 创建提醒处理器
func NewProcessor(notifier Notifier, cfg *config.Config, logger zerolog.Logger) *Processor {
	return &Processor{
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		popTimeout: 5 * time.Second,
		retryPause: time.Second,
	}
}

// Notice 把队列消息转换成邮件内容
func (p *Processor) Notice(msg *queue.AlertMessage) email.LimitNotice {
	n := email.LimitNotice{
		TierName: tier.Tier(msg.Tier).DisplayName(),
		Daily:    msg.Kind == queue.AlertDailyLimitReached,
		Limit:    msg.Limit,
		ResetsAt: msg.PeriodEnd,
	}
	if p.cfg != nil {
		n.UpgradeURL = p.cfg.Ledger.UpgradeURL
	}
	return n
}

// Process 处理单条提醒任务
func (p *Processor) Process(ctx context.Context, msg *queue.AlertMessage) error {
	if msg.Email == "" {
		return fmt.Errorf("user %s: %w", msg.UserID, ErrNoRecipient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.notifier.SendLimitReached(msg.Email, p.Notice(msg)); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	p.logger.Info().
		Str("user_id", msg.UserID).
		Str("kind", string(msg.Kind)).
		Str("operation_id", msg.OperationID).
		Msg("limit alert sent")
	return nil
}

// Run 启动 workers 个消费循环，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context, source AlertSource, workers int) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, source, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, source AlertSource, workerID int) {
	log := p.logger.With().Int("worker", workerID).Logger()

	for {
		if ctx.Err() != nil {
			log.Debug().Msg("worker shutting down")
			return
		}

		msg, err := source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("failed to pop alert")
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryPause):
			}
			continue
		}

		if msg == nil {
			continue // 超时，继续等待
		}

		if err := p.Process(ctx, msg); err != nil {
			log.Error().Err(err).Str("user_id", msg.UserID).Msg("alert failed")
		}
	}
}
