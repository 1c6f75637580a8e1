package utils

import (
	"math"

	"github.com/freightflow/freightflow-backend/internal/models"
)

const metersPerMile = 1609.344

// RateQuote is the computed line-haul total for a load.
type RateQuote struct {
	TotalCents    int64   `json:"totalCents"`
	DistanceMiles float64 `json:"distanceMiles"`
	RateType      string  `json:"rateType"`
	RateCents     int64   `json:"rateCents"`
}

// QuoteLoadRate resolves a load's financial terms into a total. Flat-rate
// loads pay the stored rate as-is; per-mile loads pay rate times the
// great-circle pickup-to-delivery distance. Distance is a floor, not a
// routed figure.
func QuoteLoadRate(load *models.Load) RateQuote {
	distanceM := HaversineDistance(load.PickupLat, load.PickupLng, load.DeliveryLat, load.DeliveryLng)
	miles := distanceM / metersPerMile

	quote := RateQuote{
		DistanceMiles: math.Round(miles*10) / 10,
		RateType:      load.RateType,
		RateCents:     load.RateCents,
	}

	switch load.RateType {
	case models.RateTypePerMile:
		quote.TotalCents = int64(math.Round(float64(load.RateCents) * miles))
	default:
		quote.TotalCents = load.RateCents
	}
	return quote
}
