package geo

import (
	"github.com/golang/geo/s2"
)

// BoundingBox is an axis aligned lat/lon rectangle, backed by s2.Rect so that corners given
// in any order are normalised.
type BoundingBox struct {
	rect s2.Rect
}

func NewBoundingBox(a, b Coordinate) BoundingBox {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	rect = rect.AddPoint(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return BoundingBox{rect: rect}
}

func (bb BoundingBox) Min() Coordinate {
	lo := bb.rect.Lo()
	return NewCoordinate(lo.Lat.Degrees(), lo.Lng.Degrees())
}

func (bb BoundingBox) Max() Coordinate {
	hi := bb.rect.Hi()
	return NewCoordinate(hi.Lat.Degrees(), hi.Lng.Degrees())
}

func (bb BoundingBox) Contains(c Coordinate) bool {
	return bb.rect.ContainsLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}
