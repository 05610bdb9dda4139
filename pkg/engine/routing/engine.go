package routing

import (
	"errors"
	"math"

	"github.com/lintang-b-s/navigatorx-maps/pkg"
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
)

var ErrNoRoute = errors.New("no route")

// Route is the ordered list of ways from start to end. Distance is the traffic weighted cost.
type Route struct {
	Ways     []da.Way
	Distance float64
}

type Engine struct {
	provider graph.DataProvider
	weights  TrafficWeights
}

// NewEngine returns a shortest path engine over provider. weights may be nil, every way then
// has weight 1.0.
func NewEngine(provider graph.DataProvider, weights TrafficWeights) *Engine {
	return &Engine{provider: provider, weights: weights}
}

func (e *Engine) GetProvider() graph.DataProvider {
	return e.provider
}

// edgeLength is the way length in km, the endpoint distance when the record has none.
func (e *Engine) edgeLength(tail *graph.GraphNode, edge graph.Edge) float64 {
	if edge.Way.HasLength() {
		return edge.Way.Length
	}
	head := e.provider.Node(edge.Head)
	return geo.CalculateHaversineDistance(tail.Record().Lat, tail.Record().Lon, head.Record().Lat, head.Record().Lon)
}

func (e *Engine) trafficWeight(w da.Way) float64 {
	if e.weights == nil {
		return pkg.DEFAULT_TRAFFIC_WEIGHT
	}
	weight := e.weights.Weight(w.ID, w.Name)
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return pkg.DEFAULT_TRAFFIC_WEIGHT
	}
	return weight
}
