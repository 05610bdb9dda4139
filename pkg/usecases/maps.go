package usecases

import (
	"context"
	"errors"
	"fmt"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
)

type RouteResult struct {
	From     string
	To       string
	Ways     []da.ResolvedWay
	Distance float64
}

// Coordinates is the route polyline: the start of the first way followed by every way end.
func (r RouteResult) Coordinates() []geo.Coordinate {
	coords := make([]geo.Coordinate, 0, len(r.Ways)+1)
	for i, w := range r.Ways {
		if i == 0 {
			coords = append(coords, w.From)
		}
		coords = append(coords, w.To)
	}
	return coords
}

// MapsService answers the query kinds of both the TCP protocol and the admin API.
type MapsService struct {
	log       *zap.Logger
	dataset   Dataset
	index     SpatialIndex
	nearby    NearbyIndex
	engine    RoutingEngine
	suggester Suggester
	traffic   TrafficTable
}

func NewMapsService(log *zap.Logger, dataset Dataset, index SpatialIndex, nearby NearbyIndex,
	engine RoutingEngine, suggester Suggester, traffic TrafficTable) *MapsService {
	return &MapsService{
		log:       log,
		dataset:   dataset,
		index:     index,
		nearby:    nearby,
		engine:    engine,
		suggester: suggester,
		traffic:   traffic,
	}
}

func (ms *MapsService) Suggest(prefix string) ([]string, error) {
	return ms.suggester.Suggest(prefix)
}

// RouteByNames routes from the intersection of streets a1 and a2 to the intersection of b1 and b2.
func (ms *MapsService) RouteByNames(ctx context.Context, a1, a2, b1, b2 string) (RouteResult, error) {
	start, err := ms.dataset.Intersection(a1, a2)
	if err != nil {
		return RouteResult{}, err
	}
	end, err := ms.dataset.Intersection(b1, b2)
	if err != nil {
		return RouteResult{}, err
	}
	return ms.route(ctx, start.ID, end.ID)
}

// RouteByPoints routes between the nodes closest to p1 and p2.
func (ms *MapsService) RouteByPoints(ctx context.Context, p1, p2 geo.Coordinate) (RouteResult, error) {
	start, err := ms.Nearest(p1)
	if err != nil {
		return RouteResult{}, err
	}
	end, err := ms.Nearest(p2)
	if err != nil {
		return RouteResult{}, err
	}
	return ms.route(ctx, start.ID, end.ID)
}

func (ms *MapsService) route(ctx context.Context, startID, endID string) (RouteResult, error) {
	r, err := ms.engine.ShortestPath(ctx, startID, endID)
	if err != nil {
		return RouteResult{}, err
	}
	ways, err := ms.dataset.Resolve(r.Ways)
	if err != nil {
		return RouteResult{}, err
	}
	if len(ways) != len(r.Ways) {
		return RouteResult{}, util.WrapErrorf(nil, util.ErrInternalServerError,
			"route from %s to %s has ways with unknown endpoints", startID, endID)
	}
	ms.log.Debug("route found", zap.String("from", startID), zap.String("to", endID),
		zap.Int("ways", len(ways)), zap.Float64("distance", r.Distance))
	return RouteResult{From: startID, To: endID, Ways: ways, Distance: r.Distance}, nil
}

// Chunk returns the ways with an endpoint inside the box spanned by p1 and p2.
func (ms *MapsService) Chunk(p1, p2 geo.Coordinate) ([]da.ResolvedWay, error) {
	return ms.dataset.Chunk(p1, p2)
}

func (ms *MapsService) Nearest(p geo.Coordinate) (spatialindex.Point, error) {
	n, err := ms.index.Nearest(p.Lat, p.Lon)
	if errors.Is(err, spatialindex.ErrEmptyIndex) {
		return spatialindex.Point{}, util.WrapErrorf(err, util.ErrNotFound, "no node near %s", formatCoordinate(p))
	}
	return n, err
}

func (ms *MapsService) Nearby(p geo.Coordinate, radius float64, limit int) []spatialindex.Point {
	return ms.nearby.SearchWithinRadius(p.Lat, p.Lon, radius, limit)
}

func (ms *MapsService) Traffic() []traffic.Entry {
	return ms.traffic.Snapshot()
}

func formatCoordinate(p geo.Coordinate) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lon)
}

var _ RoutingEngine = (*routing.Engine)(nil)
