package utils

import (
	"math"
)

const earthRadiusM = 6371000 // Earth's radius in meters

// Containment confidence tiers, derived from the reported GPS accuracy.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// maxUsableAccuracyM is the accuracy beyond which the reported value no
// longer widens the effective geofence radius.
const maxUsableAccuracyM = 500.0

// HaversineDistance calculates the great-circle distance between two
// points on Earth using the Haversine formula. Returns distance in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlng := lng2Rad - lng1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Bearing calculates the initial bearing from point 1 to point 2
// Returns bearing in degrees (0-360)
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	dlng := lng2Rad - lng1Rad

	y := math.Sin(dlng) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dlng)

	bearing := math.Atan2(y, x) * 180 / math.Pi

	if bearing < 0 {
		bearing += 360
	}

	return bearing
}

// ContainmentResult is the outcome of evaluating a reported position
// against a geofence.
type ContainmentResult struct {
	Within          bool    `json:"within"`
	DistanceM       float64 `json:"distanceM"`
	EffectiveRadius float64 `json:"effectiveRadiusM"`
	Confidence      string  `json:"confidence"`
}

// EvaluateContainment checks whether a reported point lies inside a
// circular geofence. The base radius is widened by half the reported GPS
// accuracy when accuracy is known and usable, so a fix straddling the
// boundary still counts as inside. accuracy may be nil when the device
// did not report one.
func EvaluateContainment(centerLat, centerLng, radiusM, pointLat, pointLng float64, accuracyM *float64) ContainmentResult {
	distance := HaversineDistance(centerLat, centerLng, pointLat, pointLng)

	effectiveRadius := radiusM
	if accuracyM != nil && *accuracyM > 0 && *accuracyM <= maxUsableAccuracyM {
		effectiveRadius += 0.5 * *accuracyM
	}

	return ContainmentResult{
		Within:          distance <= effectiveRadius,
		DistanceM:       distance,
		EffectiveRadius: effectiveRadius,
		Confidence:      containmentConfidence(accuracyM),
	}
}

func containmentConfidence(accuracyM *float64) string {
	switch {
	case accuracyM == nil:
		return ConfidenceMedium
	case *accuracyM <= 30:
		return ConfidenceHigh
	case *accuracyM <= 100:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
