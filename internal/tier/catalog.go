package tier

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTier 未知的订阅等级，调用方不得继续处理
var ErrInvalidTier = errors.New("invalid subscription tier")

type Tier string

const (
	Free      Tier = "free"
	PayPerUse Tier = "pay_per_use"
	Personal  Tier = "personal"
	PowerUser Tier = "power_user"
	HeavyUser Tier = "heavy_user"
	Unlimited Tier = "unlimited"
)

// All 按目录顺序列出全部等级
var All = []Tier{Free, PayPerUse, Personal, PowerUser, HeavyUser, Unlimited}

const (
	MB int64 = 1024 * 1024
	GB int64 = 1024 * MB

	// BillingIncrementBytes 按量计费单位（10MB，十进制）
	BillingIncrementBytes int64 = 10 * 1000 * 1000
)

func (t Tier) Valid() bool {
	for _, v := range All {
		if t == v {
			return true
		}
	}
	return false
}

// DisplayName 定价页与仪表盘展示名称
func (t Tier) DisplayName() string {
	switch t {
	case Free:
		return "Free"
	case PayPerUse:
		return "Pay-Per-Use"
	case Personal:
		return "Personal"
	case PowerUser:
		return "Power User"
	case HeavyUser:
		return "Heavy User"
	case Unlimited:
		return "Unlimited Personal"
	default:
		return "Unknown"
	}
}

// Parse 解析字符串形式的等级
func Parse(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// Limits 单个等级的限制与价格
// DailyFileLimit / MonthlyFileLimit 为 0 表示该等级没有对应配额，价格为 0 表示不按次计费
type Limits struct {
	MaxFileSizeBytes            int64 `json:"max_file_size_bytes"`
	MaxBatchSize                int   `json:"max_batch_size"`
	DailyFileLimit              int   `json:"daily_file_limit,omitempty"`
	MonthlyFileLimit            int   `json:"monthly_file_limit,omitempty"`
	PricePer10MBCents           int64 `json:"price_per_10mb_cents,omitempty"`
	PricePerExtraBatchFileCents int64 `json:"price_per_extra_batch_file_cents,omitempty"`
	MaxCostPerOperationCents    int64 `json:"max_cost_per_operation_cents,omitempty"`
}

func (l Limits) HasDailyLimit() bool   { return l.DailyFileLimit > 0 }
func (l Limits) HasMonthlyLimit() bool { return l.MonthlyFileLimit > 0 }
func (l Limits) PayPerUse() bool       { return l.PricePer10MBCents > 0 || l.PricePerExtraBatchFileCents > 0 }

// Defaults 内置目录
func Defaults() map[Tier]Limits {
	return map[Tier]Limits{
		Free: {
			MaxFileSizeBytes: 10 * MB,
			MaxBatchSize:     1,
			DailyFileLimit:   5,
		},
		PayPerUse: {
			MaxFileSizeBytes:            200 * MB,
			MaxBatchSize:                20,
			PricePer10MBCents:           10,
			PricePerExtraBatchFileCents: 5,
			MaxCostPerOperationCents:    200,
		},
		Personal: {
			MaxFileSizeBytes: 25 * MB,
			MaxBatchSize:     10,
			MonthlyFileLimit: 100,
		},
		PowerUser: {
			MaxFileSizeBytes: 100 * MB,
			MaxBatchSize:     50,
			MonthlyFileLimit: 500,
		},
		HeavyUser: {
			MaxFileSizeBytes: 500 * MB,
			MaxBatchSize:     999,
			MonthlyFileLimit: 2000,
		},
		Unlimited: {
			MaxFileSizeBytes: GB,
			MaxBatchSize:     999,
		},
	}
}

// Catalog 启动时构建一次的等级目录，之后只读，可并发访问
type Catalog struct {
	limits map[Tier]Limits
}

// Override 覆盖默认条目的部分字段，nil 保持默认值
type Override struct {
	MaxFileSizeBytes            *int64
	MaxBatchSize                *int
	DailyFileLimit              *int
	MonthlyFileLimit            *int
	PricePer10MBCents           *int64
	PricePerExtraBatchFileCents *int64
	MaxCostPerOperationCents    *int64
}

// NewCatalog 在默认目录上合并覆盖配置，未知等级返回 ErrInvalidTier
func NewCatalog(overrides map[string]Override) (*Catalog, error) {
	limits := Defaults()
	for name, o := range overrides {
		t, err := Parse(name)
		if err != nil {
			return nil, err
		}
		l := limits[t]
		o.apply(&l)
		if l.MaxFileSizeBytes <= 0 || l.MaxBatchSize <= 0 {
			return nil, fmt.Errorf("tier %s: max file size and max batch size must be positive", t)
		}
		limits[t] = l
	}
	for _, t := range All {
		if _, ok := limits[t]; !ok {
			return nil, fmt.Errorf("%w: %s has no catalog entry", ErrInvalidTier, t)
		}
	}
	return &Catalog{limits: limits}, nil
}

// DefaultCatalog 内置目录
func DefaultCatalog() *Catalog {
	return &Catalog{limits: Defaults()}
}

func (o Override) apply(l *Limits) {
	if o.MaxFileSizeBytes != nil {
		l.MaxFileSizeBytes = *o.MaxFileSizeBytes
	}
	if o.MaxBatchSize != nil {
		l.MaxBatchSize = *o.MaxBatchSize
	}
	if o.DailyFileLimit != nil {
		l.DailyFileLimit = *o.DailyFileLimit
	}
	if o.MonthlyFileLimit != nil {
		l.MonthlyFileLimit = *o.MonthlyFileLimit
	}
	if o.PricePer10MBCents != nil {
		l.PricePer10MBCents = *o.PricePer10MBCents
	}
	if o.PricePerExtraBatchFileCents != nil {
		l.PricePerExtraBatchFileCents = *o.PricePerExtraBatchFileCents
	}
	if o.MaxCostPerOperationCents != nil {
		l.MaxCostPerOperationCents = *o.MaxCostPerOperationCents
	}
}

// LimitsFor 查询等级限制，合法等级不会失败
func (c *Catalog) LimitsFor(t Tier) (Limits, error) {
	l, ok := c.limits[t]
	if !ok {
		return Limits{}, fmt.Errorf("%w: %q", ErrInvalidTier, t)
	}
	return l, nil
}

// Entry 目录列表条目
type Entry struct {
	Tier        Tier   `json:"tier"`
	DisplayName string `json:"display_name"`
	Limits
}

// Entries 按目录顺序返回全部等级
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.limits))
	for t, l := range c.limits {
		entries = append(entries, Entry{Tier: t, DisplayName: t.DisplayName(), Limits: l})
	}
	sort.Slice(entries, func(i, j int) bool {
		return order(entries[i].Tier) < order(entries[j].Tier)
	})
	return entries
}

func order(t Tier) int {
	for i, v := range All {
		if v == t {
			return i
		}
	}
	return len(All)
}
