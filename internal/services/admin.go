package services

import (
	"context"
	"fmt"
	"time"

	"caixa/internal/cache"
	"caixa/internal/store"
)

// AdminService answers admin checks against the registry, caching results
// so repeated checks within a request burst do not hit the store.
type AdminService struct {
	registry store.AdminRegistry
	cache    *cache.TTLCache[bool]
}

func NewAdminService(registry store.AdminRegistry) *AdminService {
	return &AdminService{
		registry: registry,
		cache:    cache.New[bool](256, 5*time.Minute),
	}
}

func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if v, ok := s.cache.Get(userID); ok {
		return v, nil
	}

	v, err := s.registry.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("admin lookup: %w", err)
	}

	s.cache.Set(userID, v)
	return v, nil
}

// Invalidate drops the cached answer for one user.
func (s *AdminService) Invalidate(userID string) {
	s.cache.Delete(userID)
}

// CleanExpired forwards to the underlying cache.
func (s *AdminService) CleanExpired() int {
	return s.cache.CleanExpired()
}
