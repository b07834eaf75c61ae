package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"fintrack/internal/builder"
	"fintrack/pkg/config"
)

type MailConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// ClientState is the shared secret echoed in webhook notifications.
	ClientState string `yaml:"client_state"`
}

type AIConfig struct {
	Enabled bool          `yaml:"enabled"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type DedupConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type WorkerConfig struct {
	Queue      string        `yaml:"queue"`
	Prefetch   int           `yaml:"prefetch"`
	MaxRetries int64         `yaml:"max_retries"`
	RetryTTL   time.Duration `yaml:"retry_ttl"`
	// outbox dispatcher
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

type BudgetConfig struct {
	Rules []builder.BudgetRule `yaml:"rules"`
}

// Policy falls back to the built-in rules when none are configured.
func (b BudgetConfig) Policy() builder.BudgetPolicy {
	if len(b.Rules) == 0 {
		return builder.DefaultBudgetPolicy()
	}
	return builder.BudgetPolicy{Rules: b.Rules}
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	Server config.ServerConfig `yaml:"server"`
	Log    config.LogConfig    `yaml:"log"`
	Mail   MailConfig          `yaml:"mail"`
	AI     AIConfig            `yaml:"ai"`
	Dedup  DedupConfig         `yaml:"dedup"`
	Worker WorkerConfig        `yaml:"worker"`
	Budget BudgetConfig        `yaml:"budget"`
}

// Load reads CONFIG_ENV and CONFIG_DIR and exits on error.
func Load() *Config {
	cfg, err := LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom loads env from dir; environment variables win over files.
func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideLogFromEnv(&cfg.Log)
	overrideMailFromEnv(&cfg.Mail)
	overrideAIFromEnv(&cfg.AI)
	overrideBudgetFromEnv(&cfg.Budget)

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Mail.BaseURL == "" {
		c.Mail.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if c.Dedup.TTL == 0 {
		c.Dedup.TTL = 10 * time.Minute
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "fintrack.mail.notification"
	}
	if c.Worker.Prefetch == 0 {
		c.Worker.Prefetch = 8
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.RetryTTL == 0 {
		c.Worker.RetryTTL = time.Hour
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = time.Second
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 100
	}
}

func overrideMailFromEnv(cfg *MailConfig) {
	if v := os.Getenv("MAIL_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("MAIL_CLIENT_STATE"); v != "" {
		cfg.ClientState = v
	}
}

func overrideAIFromEnv(cfg *AIConfig) {
	if v := os.Getenv("AI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.Model = v
	}
}

// BUDGET_PRODUBANCO_ID replaces the budget of the produbanco rule.
func overrideBudgetFromEnv(cfg *BudgetConfig) {
	v := os.Getenv("BUDGET_PRODUBANCO_ID")
	if v == "" {
		return
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = builder.DefaultBudgetPolicy().Rules
	}
	for i := range cfg.Rules {
		if cfg.Rules[i].Bank == "produbanco" {
			cfg.Rules[i].BudgetID = v
		}
	}
}
