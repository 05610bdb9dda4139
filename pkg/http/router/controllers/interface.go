package controllers

import (
	"context"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
	"github.com/lintang-b-s/navigatorx-maps/pkg/usecases"
)

type MapsService interface {
	Suggest(prefix string) ([]string, error)
	RouteByPoints(ctx context.Context, p1, p2 geo.Coordinate) (usecases.RouteResult, error)
	Chunk(p1, p2 geo.Coordinate) ([]da.ResolvedWay, error)
	Nearest(p geo.Coordinate) (spatialindex.Point, error)
	Nearby(p geo.Coordinate, radius float64, limit int) []spatialindex.Point
	Traffic() []traffic.Entry
}
