package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/data"
	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/domain/platform"
)

// InfoCacheServiceOptions groups dependencies for InfoCacheService.
type InfoCacheServiceOptions struct {
	Local  *data.LocalLRU[model.ContentInfo] // Optional: in-process tier
	Redis  core.CacheRepository              // Optional: shared tier
	TTL    time.Duration                     // Required: entry lifetime in both tiers
	Logger *slog.Logger                      // Optional: structured logger
}

// InfoCacheService is a two-tier read-through cache for content metadata.
// The local tier is consulted first; a Redis hit refills it. Redis failures
// degrade to a miss.
type InfoCacheService struct {
	local  *data.LocalLRU[model.ContentInfo]
	redis  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewInfoCacheService constructs an InfoCacheService.
func NewInfoCacheService(opts InfoCacheServiceOptions) (*InfoCacheService, error) {
	if opts.Local == nil && opts.Redis == nil {
		return nil, errors.New("at least one cache tier is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("TTL must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InfoCacheService{
		local:  opts.Local,
		redis:  opts.Redis,
		ttl:    opts.TTL,
		logger: logger.With("component", "info_cache"),
	}, nil
}

// infoKey prefers the platform content id so equivalent URLs share an entry.
func infoKey(kind model.PlatformKind, url string) string {
	if id := platform.ContentID(kind, url); id != "" {
		return "info:" + kind.String() + ":id:" + id
	}
	sum := xxhash.Sum64String(strings.TrimSpace(url))
	return "info:" + kind.String() + ":url:" + strconv.FormatUint(sum, 16)
}

// Get returns a copy of the cached info for url.
func (s *InfoCacheService) Get(ctx context.Context, kind model.PlatformKind, url string) (*model.ContentInfo, bool) {
	key := infoKey(kind, url)
	if s.local != nil {
		if info, ok := s.local.Get(key); ok {
			return &info, true
		}
	}
	if s.redis == nil {
		return nil, false
	}

	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "info cache read failed", "key", key, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	var info model.ContentInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt info cache entry", "key", key, "error", err)
		_, _ = s.redis.Delete(ctx, key)
		return nil, false
	}
	if s.local != nil {
		s.local.Set(key, info, s.ttl)
	}
	return &info, true
}

// Put stores info in every configured tier.
func (s *InfoCacheService) Put(ctx context.Context, kind model.PlatformKind, url string, info *model.ContentInfo) {
	if info == nil {
		return
	}
	key := infoKey(kind, url)
	if s.local != nil {
		s.local.Set(key, *info, s.ttl)
	}
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		s.logger.WarnContext(ctx, "info cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "info cache write failed", "key", key, "error", err)
	}
}
