package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.InDelta(t, 0, HaversineDistance(40.7128, -74.0060, 40.7128, -74.0060), 0.001)
	})

	t.Run("chicago to atlanta", func(t *testing.T) {
		// Roughly 947 km great-circle.
		d := HaversineDistance(41.8781, -87.6298, 33.7490, -84.3880)
		assert.InDelta(t, 947500, d, 5000)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// ~111.2 km along a meridian.
		d := HaversineDistance(35.0, -90.0, 36.0, -90.0)
		assert.InDelta(t, 111200, d, 500)
	})
}

func TestEvaluateContainment(t *testing.T) {
	centerLat, centerLng := 41.8781, -87.6298

	t.Run("point at center is inside", func(t *testing.T) {
		res := EvaluateContainment(centerLat, centerLng, 200, centerLat, centerLng, nil)
		assert.True(t, res.Within)
		assert.Equal(t, 200.0, res.EffectiveRadius)
	})

	t.Run("far point is outside", func(t *testing.T) {
		res := EvaluateContainment(centerLat, centerLng, 200, centerLat+0.01, centerLng, nil)
		assert.False(t, res.Within)
		assert.Greater(t, res.DistanceM, 1000.0)
	})

	t.Run("accuracy widens the effective radius", func(t *testing.T) {
		accuracy := 100.0
		res := EvaluateContainment(centerLat, centerLng, 200, centerLat, centerLng, &accuracy)
		assert.Equal(t, 250.0, res.EffectiveRadius)
	})

	t.Run("boundary fix counts as inside with accuracy", func(t *testing.T) {
		// ~222m north of center, just outside a 200m fence.
		pointLat := centerLat + 0.002
		bare := EvaluateContainment(centerLat, centerLng, 200, pointLat, centerLng, nil)
		assert.False(t, bare.Within)

		accuracy := 60.0
		widened := EvaluateContainment(centerLat, centerLng, 200, pointLat, centerLng, &accuracy)
		assert.True(t, widened.Within)
	})

	t.Run("unusable accuracy does not widen", func(t *testing.T) {
		accuracy := 800.0
		res := EvaluateContainment(centerLat, centerLng, 200, centerLat, centerLng, &accuracy)
		assert.Equal(t, 200.0, res.EffectiveRadius)
		assert.Equal(t, ConfidenceLow, res.Confidence)
	})
}

func TestContainmentConfidence(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		accuracy *float64
		want     string
	}{
		{"no accuracy reported", nil, ConfidenceMedium},
		{"tight fix", ptr(10), ConfidenceHigh},
		{"exactly 30m", ptr(30), ConfidenceHigh},
		{"moderate fix", ptr(75), ConfidenceMedium},
		{"exactly 100m", ptr(100), ConfidenceMedium},
		{"loose fix", ptr(150), ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := EvaluateContainment(0, 0, 100, 0, 0, tt.accuracy)
			assert.Equal(t, tt.want, res.Confidence)
		})
	}
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(35.0, -90.0, 36.0, -90.0), 0.5)
	assert.InDelta(t, 180, Bearing(36.0, -90.0, 35.0, -90.0), 0.5)
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 0.5)
}
