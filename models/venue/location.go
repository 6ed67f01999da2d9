package venue

import (
	"fmt"
	"math"
)

// PointType is the only GeoJSON geometry venues use.
const PointType = "Point"

// EarthRadiusMeters matches the radius Redis uses for GEO commands.
const EarthRadiusMeters = 6372797.560856

// Point is a GeoJSON point with coordinates in (longitude, latitude) order.
type Point struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a point from longitude and latitude.
func NewPoint(lon, lat float64) Point {
	return Point{Type: PointType, Coordinates: [2]float64{lon, lat}}
}

func (p Point) Lon() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// Validate checks the type and coordinate ranges.
func (p Point) Validate() error {
	if p.Type != PointType {
		return fmt.Errorf("location type must be %q", PointType)
	}
	if lon := p.Lon(); math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	if lat := p.Lat(); math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	return nil
}

// DistanceMeters is the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b Point) float64 {
	lat1 := degreesToRadians(a.Lat())
	lat2 := degreesToRadians(b.Lat())
	dLat := lat2 - lat1
	dLon := degreesToRadians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
