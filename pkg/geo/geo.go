// Package geo provides the spherical-earth math shared by the anomaly
// detectors.
package geo

import (
	"math"
	"regexp"
)

// EarthRadiusM is the mean earth radius in meters used for great-circle math.
const EarthRadiusM = 6371000.0

var icaoHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Haversine calculates the great-circle distance in meters between two
// lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180.0

	lat1Rad := lat1 * rad
	lon1Rad := lon1 * rad
	lat2Rad := lat2 * rad
	lon2Rad := lon2 * rad

	dlon := lon2Rad - lon1Rad
	dlat := lat2Rad - lat1Rad

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// HaversineMeters is Haversine rounded to the nearest integer meter, the
// unit all emitted records carry.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) int64 {
	return int64(math.Round(Haversine(lat1, lon1, lat2, lon2)))
}

// IsICAOHex checks whether a string is a valid 24-bit ICAO address in its
// 6-character hex form.
func IsICAOHex(s string) bool {
	return icaoHexPattern.MatchString(s)
}

// InCoordinateRange reports whether a lat/lon pair lies strictly inside the
// valid coordinate space. Values pinned exactly to the poles or antimeridian
// are rejected; upstream decoders emit those as error markers.
func InCoordinateRange(lat, lon float64) bool {
	return lat > -90 && lat < 90 && lon > -180 && lon < 180
}
