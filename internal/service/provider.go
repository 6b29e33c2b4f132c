package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type providerService struct {
	providers repository.ProviderRepository
	bookings  repository.BookingRepository
	wallets   repository.WalletRepository
	locations *geo.LocationCache
	realtime  Publisher
}

// NewProviderService builds the provider-facing service. locations may be
// nil when Redis is not configured; position reads then fall back to the
// database row.
func NewProviderService(
	providers repository.ProviderRepository,
	bookings repository.BookingRepository,
	wallets repository.WalletRepository,
	locations *geo.LocationCache,
	realtime Publisher,
) ProviderService {
	return &providerService{
		providers: providers,
		bookings:  bookings,
		wallets:   wallets,
		locations: locations,
		realtime:  realtime,
	}
}

func (s *providerService) Profile(ctx context.Context, id string) (*domain.Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *providerService) UpdateProfile(ctx context.Context, p *domain.Provider) error {
	if err := s.providers.UpdateProfile(ctx, p); err != nil {
		return fmt.Errorf("update profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *providerService) SetAvailability(ctx context.Context, id string, available bool) error {
	if err := s.providers.SetAvailability(ctx, id, available); err != nil {
		return fmt.Errorf("set availability %s: %w", id, err)
	}
	logger.Info("provider availability changed", "provider_id", id, "available", available)
	return nil
}

func (s *providerService) SetOnline(ctx context.Context, id string, online bool) error {
	if err := s.providers.SetOnline(ctx, id, online); err != nil {
		return fmt.Errorf("set online %s: %w", id, err)
	}
	logger.Info("provider presence changed", "provider_id", id, "online", online)
	return nil
}

func (s *providerService) ReplaceServices(ctx context.Context, id string, serviceIDs []string) error {
	if err := s.providers.ReplaceServices(ctx, id, serviceIDs); err != nil {
		return fmt.Errorf("replace services %s: %w", id, err)
	}
	return nil
}

func (s *providerService) Earnings(ctx context.Context, id string) (*domain.EarningsSummary, int64, error) {
	summary, err := s.providers.Earnings(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("earnings %s: %w", id, err)
	}
	balance, err := s.wallets.Balance(ctx, domain.OwnerTypeProvider, id)
	if err != nil {
		return nil, 0, fmt.Errorf("earnings %s: %w", id, err)
	}
	return summary, balance, nil
}

func (s *providerService) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now()
	}
	if err := s.providers.UpdateLocation(ctx, loc); err != nil {
		return fmt.Errorf("update location %s: %w", loc.ProviderID, err)
	}
	if s.locations != nil {
		if err := s.locations.Store(ctx, loc); err != nil {
			logger.Warn("location cache write failed", "provider_id", loc.ProviderID, "error", err)
		}
	}

	userIDs, err := s.bookings.ActiveUserIDsForProvider(ctx, loc.ProviderID)
	if err != nil {
		logger.Error("location fan-out lookup failed", "provider_id", loc.ProviderID, "error", err)
		return nil
	}
	if len(userIDs) == 0 {
		return nil
	}
	payload := map[string]any{
		"provider_id": loc.ProviderID,
		"latitude":    loc.Latitude,
		"longitude":   loc.Longitude,
		"heading":     loc.Heading,
		"speed":       loc.Speed,
		"updated_at":  loc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, uid := range userIDs {
		s.realtime.Publish(userChannel(uid), "provider_location", payload)
	}
	return nil
}

func (s *providerService) LastLocation(ctx context.Context, providerID string) (*domain.Location, error) {
	if s.locations != nil {
		loc, err := s.locations.Load(ctx, providerID)
		if err != nil {
			logger.Warn("location cache read failed", "provider_id", providerID, "error", err)
		} else if loc != nil {
			return loc, nil
		}
	}
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, domain.ErrNotFound
	}
	loc := &domain.Location{
		ProviderID: providerID,
		Latitude:   *p.Latitude,
		Longitude:  *p.Longitude,
	}
	if p.LastSeen != nil {
		loc.UpdatedAt = *p.LastSeen
	}
	return loc, nil
}
