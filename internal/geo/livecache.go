package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ibndev/citystaff-backend/internal/domain"
)

const (
	locationKeyPrefix = "provider:location:"
	geoIndexKey       = "providers:geo"
	locationTTL       = 5 * time.Minute
)

// LocationCache mirrors the latest provider position in Redis so reads
// never hit Postgres. Entries expire on their own when a provider stops
// reporting.
type LocationCache struct {
	rdb *redis.Client
}

func NewLocationCache(rdb *redis.Client) *LocationCache {
	return &LocationCache{rdb: rdb}
}

func (c *LocationCache) Store(ctx context.Context, loc *domain.Location) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, locationKeyPrefix+loc.ProviderID, raw, locationTTL)
	pipe.GeoAdd(ctx, geoIndexKey, &redis.GeoLocation{
		Name:      loc.ProviderID,
		Longitude: loc.Longitude,
		Latitude:  loc.Latitude,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache location: %w", err)
	}
	return nil
}

// Load returns the cached position or (nil, nil) when the provider has no
// fresh entry.
func (c *LocationCache) Load(ctx context.Context, providerID string) (*domain.Location, error) {
	raw, err := c.rdb.Get(ctx, locationKeyPrefix+providerID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	return &loc, nil
}

// Nearby returns provider IDs within radiusKm of the point, nearest first.
func (c *LocationCache) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error) {
	res, err := c.rdb.GeoSearch(ctx, geoIndexKey, &redis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
		Count:      limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}
	return res, nil
}
