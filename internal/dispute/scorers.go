package dispute

import (
	"math"

	"github.com/tidwall/gjson"
)

// Evidence is the raw material DisputeAgent's Gather stage assembles before
// Analyze runs the three independent scorers.
type Evidence struct {
	DeliveryDocumentJSON string // gjson-parsed: signature OCR match, metadata
	TrackingPointsJSON   string // gjson-parsed array of {lat,lng,ts}
	HasPhotos            bool
	PlannedLat, PlannedLng float64
	PlannedTimeUnix      int64
}

// signatureAuthenticity scores OCR + pattern-match confidence from the
// delivery document, read via gjson rather than a full unmarshal since only
// a couple of fields are ever needed per call.
func signatureAuthenticity(evidence Evidence) float64 {
	if evidence.DeliveryDocumentJSON == "" {
		return 0
	}
	result := gjson.Get(evidence.DeliveryDocumentJSON, "signature.match_confidence")
	if !result.Exists() {
		return 0
	}
	return clamp01(result.Float())
}

// deliveryConsistency compares planned vs. actual geo/time distance from
// the tracking history's last point.
func deliveryConsistency(evidence Evidence) float64 {
	points := gjson.Get(evidence.TrackingPointsJSON, "#").Int()
	if points == 0 {
		return 0
	}
	last := gjson.Get(evidence.TrackingPointsJSON, "@reverse|0")
	lat := last.Get("lat").Float()
	lng := last.Get("lng").Float()
	ts := last.Get("ts").Int()

	geoDistance := haversineKm(evidence.PlannedLat, evidence.PlannedLng, lat, lng)
	timeDeltaHours := math.Abs(float64(ts-evidence.PlannedTimeUnix)) / 3600

	// Normalize: within 5km and 6h is fully consistent; beyond 50km or 48h
	// is fully inconsistent. Linear interpolation between.
	geoScore := 1 - clamp01((geoDistance-5)/45)
	timeScore := 1 - clamp01((timeDeltaHours-6)/42)
	return clamp01((geoScore + timeScore) / 2)
}

// damagePresence is a vision-check score; 0 when there are no photos to
// inspect.
func damagePresence(evidence Evidence, visionScore float64) float64 {
	if !evidence.HasPhotos {
		return 0
	}
	return clamp01(visionScore)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// haversineKm computes great-circle distance in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
