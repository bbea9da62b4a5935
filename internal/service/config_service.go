package service

import (
	"context"
	"sync"
	"time"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/repository/docstore"
	"github.com/costaverde/billing-backend/internal/store"
)

// ConfigCacheTTL is how long a client's billing configuration is served
// from memory. Configuration is immutable while the engine runs, so no
// invalidation hook is needed.
const ConfigCacheTTL = time.Hour

// ConfigService serves per-client billing configuration with a TTL
// cache.
type ConfigService struct {
	repo  *docstore.ConfigRepository
	clock store.Clock

	mu    sync.RWMutex
	cache map[string]cachedConfig
}

type cachedConfig struct {
	cfg     *domain.ClientConfig
	expires time.Time
}

func NewConfigService(repo *docstore.ConfigRepository, clock store.Clock) *ConfigService {
	return &ConfigService{
		repo:  repo,
		clock: clock,
		cache: make(map[string]cachedConfig),
	}
}

// Get returns the client's validated billing configuration, from cache
// when fresh.
func (s *ConfigService) Get(ctx context.Context, clientID string) (*domain.ClientConfig, error) {
	now := s.clock.Now()

	s.mu.RLock()
	entry, ok := s.cache[clientID]
	s.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.cfg, nil
	}

	cfg, err := s.repo.GetClientConfig(ctx, clientID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[clientID] = cachedConfig{cfg: cfg, expires: now.Add(ConfigCacheTTL)}
	s.mu.Unlock()
	return cfg, nil
}
