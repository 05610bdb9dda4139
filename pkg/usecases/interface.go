package usecases

import (
	"context"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
)

type Dataset interface {
	Intersection(streetA, streetB string) (da.Node, error)
	Chunk(a, b geo.Coordinate) ([]da.ResolvedWay, error)
	Resolve(ways []da.Way) ([]da.ResolvedWay, error)
}

type SpatialIndex interface {
	Nearest(lat, lon float64) (spatialindex.Point, error)
}

type NearbyIndex interface {
	SearchWithinRadius(qLat, qLon, radius float64, limit int) []spatialindex.Point
}

type RoutingEngine interface {
	ShortestPath(ctx context.Context, startID, endID string) (routing.Route, error)
}

type Suggester interface {
	Suggest(prefix string) ([]string, error)
}

type TrafficTable interface {
	Snapshot() []traffic.Entry
}
