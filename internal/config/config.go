package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	RedisURL       string `env:"REDIS_URL,required=true"`
	SchedulerURL   string `env:"SCHEDULER_URL,required=true"`
	SchedulerToken string `env:"SCHEDULER_TOKEN,required=true"`
	// RabbitMQURL is optional; lifecycle events are dropped when it is empty.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	DispatchChunkSize       int    `env:"DISPATCH_CHUNK_SIZE,default=100"`
	PersistChunkSize        int    `env:"PERSIST_CHUNK_SIZE,default=200"`
	JobQueueTimeoutSec      int    `env:"JOB_QUEUE_TIMEOUT_SEC,default=30"`
	JobQueueRateLimitPerSec int    `env:"JOB_QUEUE_RATE_LIMIT_PER_SEC,default=20"`
	ChatIDSuffix            string `env:"CHAT_ID_SUFFIX,default=@c.us"`
	TagCacheTTLSec          int    `env:"TAG_CACHE_TTL_SEC,default=60"`
	ApprovalLockTTLSec      int    `env:"APPROVAL_LOCK_TTL_SEC,default=900"`
	ResolveMaxLimit         int    `env:"RESOLVE_MAX_LIMIT,default=5000"`
	RequestTimeoutSec       int    `env:"REQUEST_TIMEOUT_SEC,default=120"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.SchedulerURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SCHEDULER_URL must be an absolute URL")
	}

	positive := map[string]int{
		"API_PORT":                     c.APIPort,
		"DISPATCH_CHUNK_SIZE":          c.DispatchChunkSize,
		"PERSIST_CHUNK_SIZE":           c.PersistChunkSize,
		"JOB_QUEUE_TIMEOUT_SEC":        c.JobQueueTimeoutSec,
		"JOB_QUEUE_RATE_LIMIT_PER_SEC": c.JobQueueRateLimitPerSec,
		"TAG_CACHE_TTL_SEC":            c.TagCacheTTLSec,
		"APPROVAL_LOCK_TTL_SEC":        c.ApprovalLockTTLSec,
		"RESOLVE_MAX_LIMIT":            c.ResolveMaxLimit,
		"REQUEST_TIMEOUT_SEC":          c.RequestTimeoutSec,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

func (c *Config) JobQueueTimeout() time.Duration {
	return time.Duration(c.JobQueueTimeoutSec) * time.Second
}

func (c *Config) TagCacheTTL() time.Duration {
	return time.Duration(c.TagCacheTTLSec) * time.Second
}

func (c *Config) ApprovalLockTTL() time.Duration {
	return time.Duration(c.ApprovalLockTTLSec) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
