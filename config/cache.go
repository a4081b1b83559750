package config

import "time"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig controls the content info cache.
type CacheConfig struct {
	// InfoEnabled turns on caching of metadata probes.
	InfoEnabled bool `env:"CACHE_INFO_ENABLED" envDefault:"true"`

	// InfoTTL is how long a probe result is reused.
	InfoTTL time.Duration `env:"CACHE_INFO_TTL" envDefault:"10m"`

	// LocalCapacity is the in-process LRU size.
	LocalCapacity int `env:"CACHE_LOCAL_CAPACITY" envDefault:"512"`

	// RedisEnabled adds Redis as a shared second tier.
	RedisEnabled bool `env:"CACHE_REDIS_ENABLED" envDefault:"false"`

	// Namespace prefixes every Redis key.
	Namespace string `env:"CACHE_NAMESPACE" envDefault:"mediafetch"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.InfoTTL <= 0 {
		c.InfoTTL = 10 * time.Minute
	}
	if c.LocalCapacity < 1 {
		c.LocalCapacity = 1
	}
	if c.Namespace == "" {
		c.Namespace = "mediafetch"
	}
	if !c.InfoEnabled {
		c.RedisEnabled = false
	}
}
