package spatialindex

import (
	"sort"

	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr *rtree.RTreeG[Point]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[Point]
	return &Rtree{
		tr: &tr,
	}
}

// Build inserts every point as a degenerate rectangle keyed by [lon, lat].
func (rt *Rtree) Build(points []Point, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("points", len(points)))
	for _, p := range points {
		rt.tr.Insert([2]float64{p.Lon, p.Lat}, [2]float64{p.Lon, p.Lat}, p)
	}
	log.Info("R-tree spatial index built.")
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius returns up to limit points within radius km of (qLat, qLon), closest first.
// A limit <= 0 returns every match.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64, limit int) []Point {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius*1.5)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius*1.5)

	type hit struct {
		p    Point
		dist float64
	}
	hits := make([]hit, 0, 16)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, p Point) bool {
			if d := geo.CalculateHaversineDistance(qLat, qLon, p.Lat, p.Lon); d <= radius {
				hits = append(hits, hit{p: p, dist: d})
			}
			return true
		})

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]Point, len(hits))
	for i, h := range hits {
		results[i] = h.p
	}
	return results
}
