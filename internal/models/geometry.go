package models

import (
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

const earthRadiusKm = 6371.0

// GeoPoint is a WGS84 location. It is stored as WKT "POINT (lng lat)".
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g GeoPoint) Validate() error {
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", g.Lng)
	}
	return nil
}

func (g GeoPoint) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{g.Lng, g.Lat})
}

func (g GeoPoint) Value() (driver.Value, error) {
	s, err := wkt.Marshal(g.Point())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location to WKT: %w", err)
	}
	return s, nil
}

func (g *GeoPoint) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("GeoPoint: Scan failed, unexpected type %T", value)
	}

	t, err := wkt.Unmarshal(s)
	if err != nil {
		return fmt.Errorf("failed to parse WKT location: %w", err)
	}
	p, ok := t.(*geom.Point)
	if !ok {
		return fmt.Errorf("location is %T, not a point", t)
	}
	g.Lng, g.Lat = p.X(), p.Y()
	return nil
}

// DistanceKm is the great-circle distance between two points.
func (g GeoPoint) DistanceKm(o GeoPoint) float64 {
	lat1, lat2 := g.Lat*math.Pi/180, o.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLng := (o.Lng - g.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
