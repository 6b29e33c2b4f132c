package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

// Well-known setting keys. Values live in the settings table so operators
// can tune dispatch and pricing without a deploy.
const (
	SettingOfferTTLSeconds    = "dispatch_offer_ttl"
	SettingMaxAttempts        = "dispatch_max_attempts"
	SettingMaxDistanceKm      = "dispatch_max_distance"
	SettingDispatchMode       = "dispatch_mode"
	SettingCommissionPercent  = "platform_commission"
	SettingTaxPercent         = "tax_percent"
	SettingNoProvidersText    = "no_providers_text"
	SettingOfferTitle         = "dispatch_offer_title"
	SettingMinTopUpCents      = "wallet_minimum_topup"
	SettingMinPayoutCents     = "provider_min_payout"
)

const settingsCacheTTL = 60 * time.Second

type settingsService struct {
	repo repository.SettingsRepository

	mu        sync.RWMutex
	cache     map[string]string
	fetchedAt time.Time

	now func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository) SettingsService {
	return &settingsService{repo: repo, now: time.Now}
}

func (s *settingsService) all(ctx context.Context) map[string]string {
	s.mu.RLock()
	if s.cache != nil && s.now().Sub(s.fetchedAt) < settingsCacheTTL {
		cached := s.cache
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	values, err := s.repo.GetAll(ctx)
	if err != nil {
		logger.Error("settings load failed, serving stale cache", "error", err)
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.cache
	}

	s.mu.Lock()
	s.cache = values
	s.fetchedAt = s.now()
	s.mu.Unlock()
	return values
}

func (s *settingsService) Get(ctx context.Context, key, def string) string {
	if v, ok := s.all(ctx)[key]; ok && v != "" {
		return v
	}
	return def
}

func (s *settingsService) GetNumber(ctx context.Context, key string, def float64) float64 {
	v, ok := s.all(ctx)[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn("setting is not numeric", "key", key, "value", v)
		return def
	}
	return n
}

func (s *settingsService) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok := s.all(ctx)[key]
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func (s *settingsService) Update(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("update setting: empty key")
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return fmt.Errorf("update setting %q: %w", key, err)
	}
	s.invalidate()
	return nil
}

func (s *settingsService) UpdateMany(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := s.repo.Set(ctx, k, v); err != nil {
			s.invalidate()
			return fmt.Errorf("update setting %q: %w", k, err)
		}
	}
	s.invalidate()
	return nil
}

func (s *settingsService) Public(ctx context.Context) (map[string]string, error) {
	return s.repo.GetPublic(ctx)
}

func (s *settingsService) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}
