package utils

import (
	"testing"

	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestQuoteLoadRate(t *testing.T) {
	base := models.Load{
		PickupLat:   41.8781,
		PickupLng:   -87.6298,
		DeliveryLat: 33.7490,
		DeliveryLng: -84.3880,
	}

	t.Run("flat rate pays as stored", func(t *testing.T) {
		load := base
		load.RateType = models.RateTypeFlat
		load.RateCents = 185000

		quote := QuoteLoadRate(&load)
		assert.Equal(t, int64(185000), quote.TotalCents)
		assert.Equal(t, models.RateTypeFlat, quote.RateType)
		// Chicago to Atlanta is roughly 589 miles great-circle.
		assert.InDelta(t, 589, quote.DistanceMiles, 3)
	})

	t.Run("per-mile rate scales with distance", func(t *testing.T) {
		load := base
		load.RateType = models.RateTypePerMile
		load.RateCents = 300 // $3.00/mile

		quote := QuoteLoadRate(&load)
		assert.InDelta(t, 589*300, float64(quote.TotalCents), 1000)
	})

	t.Run("zero distance per-mile quotes zero", func(t *testing.T) {
		load := base
		load.DeliveryLat = load.PickupLat
		load.DeliveryLng = load.PickupLng
		load.RateType = models.RateTypePerMile
		load.RateCents = 300

		quote := QuoteLoadRate(&load)
		assert.Equal(t, int64(0), quote.TotalCents)
		assert.Equal(t, 0.0, quote.DistanceMiles)
	})
}
