package geo

import (
	"math"
	"sort"
)

// Haversine returns the great-circle distance between two coordinates in
// kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// RankPolicy selects how qualified candidates are ordered.
type RankPolicy string

const (
	PolicyNearest RankPolicy = "nearest"
	PolicyRating  RankPolicy = "rating"
	PolicyHybrid  RankPolicy = "hybrid"
)

// ParsePolicy maps a settings value to a policy, defaulting to nearest.
func ParsePolicy(s string) RankPolicy {
	switch RankPolicy(s) {
	case PolicyRating:
		return PolicyRating
	case PolicyHybrid:
		return PolicyHybrid
	}
	return PolicyNearest
}

// Candidate is a provider eligible for an offer, with the distance computed
// at ranking time.
type Candidate struct {
	ProviderID string
	FullName   string
	PushToken  string
	Latitude   float64
	Longitude  float64
	Rating     float64
	DistanceKm float64
}

// Rank computes distances from the origin, drops candidates beyond
// maxRadiusKm, and orders the rest by the given policy. Ties are broken by
// provider id so the ordering is deterministic. An empty result is a normal
// outcome, not an error.
func Rank(policy RankPolicy, originLat, originLng, maxRadiusKm float64, candidates []Candidate) []Candidate {
	in := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.DistanceKm = Haversine(originLat, originLng, c.Latitude, c.Longitude)
		if c.DistanceKm <= maxRadiusKm {
			in = append(in, c)
		}
	}
	sort.Slice(in, func(i, j int) bool {
		a, b := in[i], in[j]
		var less, equal bool
		switch policy {
		case PolicyRating:
			less, equal = a.Rating > b.Rating, a.Rating == b.Rating
		case PolicyHybrid:
			// Weighted score, ascending: closer and better-rated wins.
			sa := a.DistanceKm*0.6 - a.Rating*0.4
			sb := b.DistanceKm*0.6 - b.Rating*0.4
			less, equal = sa < sb, sa == sb
		default:
			less, equal = a.DistanceKm < b.DistanceKm, a.DistanceKm == b.DistanceKm
		}
		if equal {
			return a.ProviderID < b.ProviderID
		}
		return less
	})
	return in
}
