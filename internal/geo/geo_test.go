package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	// Lagos Island to Ikeja is roughly 16-17 km.
	d := Haversine(6.4541, 3.3947, 6.6018, 3.3515)
	assert.InDelta(t, 16.9, d, 1.0)

	assert.Zero(t, Haversine(6.45, 3.40, 6.45, 3.40))

	// Symmetric in its endpoints.
	assert.Equal(t, Haversine(6.4541, 3.3947, 6.6018, 3.3515), Haversine(6.6018, 3.3515, 6.4541, 3.3947))

	// One degree of latitude at the equator is about 111 km.
	deg := Haversine(0, 0, 1, 0)
	assert.InEpsilon(t, 111.0, deg, 0.01)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyNearest, ParsePolicy("nearest"))
	assert.Equal(t, PolicyRating, ParsePolicy("rating"))
	assert.Equal(t, PolicyHybrid, ParsePolicy("hybrid"))
	assert.Equal(t, PolicyNearest, ParsePolicy(""))
	assert.Equal(t, PolicyNearest, ParsePolicy("garbage"))
}

func rankingPool() []Candidate {
	return []Candidate{
		{ProviderID: "far-great", Latitude: 6.60, Longitude: 3.55, Rating: 5.0},
		{ProviderID: "near-poor", Latitude: 6.46, Longitude: 3.41, Rating: 2.5},
		{ProviderID: "mid-good", Latitude: 6.50, Longitude: 3.45, Rating: 4.5},
		{ProviderID: "out-of-range", Latitude: 8.50, Longitude: 4.55, Rating: 5.0},
	}
}

func TestRank_NearestOrdersByDistance(t *testing.T) {
	ranked := Rank(PolicyNearest, 6.45, 3.40, 50, rankingPool())

	require.Len(t, ranked, 3, "out-of-range candidate must be dropped")
	assert.Equal(t, "near-poor", ranked[0].ProviderID)
	assert.Equal(t, "mid-good", ranked[1].ProviderID)
	assert.Equal(t, "far-great", ranked[2].ProviderID)
	assert.Greater(t, ranked[1].DistanceKm, ranked[0].DistanceKm)
}

func TestRank_RatingOrdersByRating(t *testing.T) {
	ranked := Rank(PolicyRating, 6.45, 3.40, 50, rankingPool())

	require.Len(t, ranked, 3)
	assert.Equal(t, "far-great", ranked[0].ProviderID)
	assert.Equal(t, "mid-good", ranked[1].ProviderID)
	assert.Equal(t, "near-poor", ranked[2].ProviderID)
}

func TestRank_HybridBalancesBoth(t *testing.T) {
	pool := []Candidate{
		{ProviderID: "closest-poor", Latitude: 6.46, Longitude: 3.41, Rating: 2.5},
		{ProviderID: "close-great", Latitude: 6.465, Longitude: 3.415, Rating: 5.0},
	}
	ranked := Rank(PolicyHybrid, 6.45, 3.40, 50, pool)

	require.Len(t, ranked, 2)
	// close-great trades well under a kilometer for 2.5 extra rating
	// points and must beat the nearest but poorly rated candidate.
	assert.Equal(t, "close-great", ranked[0].ProviderID)

	// Under the pure nearest policy the order flips.
	nearest := Rank(PolicyNearest, 6.45, 3.40, 50, pool)
	assert.Equal(t, "closest-poor", nearest[0].ProviderID)
}

func TestRank_TiesBreakByProviderID(t *testing.T) {
	same := []Candidate{
		{ProviderID: "b", Latitude: 6.46, Longitude: 3.41, Rating: 4.0},
		{ProviderID: "a", Latitude: 6.46, Longitude: 3.41, Rating: 4.0},
	}
	ranked := Rank(PolicyNearest, 6.45, 3.40, 50, same)

	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].ProviderID)
	assert.Equal(t, "b", ranked[1].ProviderID)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Empty(t, Rank(PolicyNearest, 6.45, 3.40, 50, nil))
}
