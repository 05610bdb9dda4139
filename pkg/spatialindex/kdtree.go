package spatialindex

import (
	"errors"
	"sort"

	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
)

var ErrEmptyIndex = errors.New("spatial index is empty")

// Point is an indexed road network node.
type Point struct {
	ID  string
	Lat float64
	Lon float64
}

func NewPoint(id string, lat, lon float64) Point {
	return Point{ID: id, Lat: lat, Lon: lon}
}

func (p Point) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(p.Lat, p.Lon)
}

func (p Point) axis(a int) float64 {
	if a == 0 {
		return p.Lat
	}
	return p.Lon
}

type kdNode struct {
	point       Point
	left, right int32
	axis        int8
}

// KDTree is an immutable 2-d tree over latitude and longitude, split on the median of
// alternating axes.
type KDTree struct {
	nodes []kdNode
	root  int32
}

// Build constructs a balanced tree over points. The input slice is not modified.
func Build(points []Point) *KDTree {
	pts := append([]Point(nil), points...)
	t := &KDTree{nodes: make([]kdNode, 0, len(pts))}
	t.root = t.build(pts, 0)
	return t
}

func (t *KDTree) build(pts []Point, depth int) int32 {
	if len(pts) == 0 {
		return -1
	}
	axis := depth % 2
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].axis(axis) < pts[j].axis(axis)
	})
	mid := len(pts) / 2

	i := int32(len(t.nodes))
	t.nodes = append(t.nodes, kdNode{point: pts[mid], axis: int8(axis)})
	left := t.build(pts[:mid], depth+1)
	right := t.build(pts[mid+1:], depth+1)
	t.nodes[i].left, t.nodes[i].right = left, right
	return i
}

func (t *KDTree) Len() int {
	return len(t.nodes)
}

// Nearest returns the indexed point closest to (lat, lon) by planar distance on degrees.
// Among equally close points the first one found wins.
func (t *KDTree) Nearest(lat, lon float64) (Point, error) {
	if len(t.nodes) == 0 {
		return Point{}, ErrEmptyIndex
	}
	q := NewPoint("", lat, lon)
	best, bestDist := int32(-1), 0.0
	t.nearest(t.root, q, &best, &bestDist)
	return t.nodes[best].point, nil
}

func (t *KDTree) nearest(i int32, q Point, best *int32, bestDist *float64) {
	if i < 0 {
		return
	}
	n := t.nodes[i]
	if d := squaredDist(n.point, q); *best < 0 || d < *bestDist {
		*best, *bestDist = i, d
	}

	axis := int(n.axis)
	diff := q.axis(axis) - n.point.axis(axis)
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}
	t.nearest(near, q, best, bestDist)
	// the far side can only hold a closer point when the splitting line is within the best radius
	if diff*diff < *bestDist {
		t.nearest(far, q, best, bestDist)
	}
}

func squaredDist(a, b Point) float64 {
	dLat, dLon := a.Lat-b.Lat, a.Lon-b.Lon
	return dLat*dLat + dLon*dLon
}
