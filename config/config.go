package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Database DatabaseConfig        `mapstructure:"database"`
	Redis    RedisConfig           `mapstructure:"redis"`
	JWT      JWTConfig             `mapstructure:"jwt"`
	Email    EmailConfig           `mapstructure:"email"`
	Queue    QueueConfig           `mapstructure:"queue"`
	CORS     CORSConfig            `mapstructure:"cors"`
	Log      LogConfig             `mapstructure:"log"`
	Ledger   LedgerConfig          `mapstructure:"ledger"`
	Tiers    map[string]TierConfig `mapstructure:"tiers"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	DSN          string `mapstructure:"dsn"`    // 设置后忽略 host/port 等字段
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	AlertQueue string `mapstructure:"alert_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type LedgerConfig struct {
	AlertsEnabled bool   `mapstructure:"alerts_enabled"` // 配额用尽时推送提醒任务
	UpgradeURL    string `mapstructure:"upgrade_url"`    // 提醒邮件中的升级链接
}

// TierConfig 对内置等级目录的覆盖，未设置的字段保持默认
type TierConfig struct {
	MaxFileSizeMB               *int64 `mapstructure:"max_file_size_mb"`
	MaxBatchSize                *int   `mapstructure:"max_batch_size"`
	DailyFileLimit              *int   `mapstructure:"daily_file_limit"`
	MonthlyFileLimit            *int   `mapstructure:"monthly_file_limit"`
	PricePer10MBCents           *int64 `mapstructure:"price_per_10mb_cents"`
	PricePerExtraBatchFileCents *int64 `mapstructure:"price_per_extra_batch_file_cents"`
	MaxCostPerOperationCents    *int64 `mapstructure:"max_cost_per_operation_cents"`
}

// Catalog 根据配置构建等级目录，只在启动时调用一次
func (c *Config) Catalog() (*tier.Catalog, error) {
	overrides := make(map[string]tier.Override, len(c.Tiers))
	for name, tc := range c.Tiers {
		o := tier.Override{
			MaxBatchSize:                tc.MaxBatchSize,
			DailyFileLimit:              tc.DailyFileLimit,
			MonthlyFileLimit:            tc.MonthlyFileLimit,
			PricePer10MBCents:           tc.PricePer10MBCents,
			PricePerExtraBatchFileCents: tc.PricePerExtraBatchFileCents,
			MaxCostPerOperationCents:    tc.MaxCostPerOperationCents,
		}
		if tc.MaxFileSizeMB != nil {
			bytes := *tc.MaxFileSizeMB * tier.MB
			o.MaxFileSizeBytes = &bytes
		}
		overrides[name] = o
	}
	return tier.NewCatalog(overrides)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("queue.alert_queue", "usage_alerts")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ledger.alerts_enabled", true)
}

func Load(configPath string) (*Config, error) {
	// 优先读取 config.local.yaml（包含真实密钥，不提交到 git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，如 DATABASE_PASSWORD、JWT_SECRET
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
