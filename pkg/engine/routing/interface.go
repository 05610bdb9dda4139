package routing

import (
	"context"
)

// TrafficWeights scales way lengths by live congestion. A weight of 1.0 means free flow.
type TrafficWeights interface {
	Weight(wayID, street string) float64
}

type Router interface {
	ShortestPath(ctx context.Context, startID, endID string) (Route, error)
}

var _ Router = (*Engine)(nil)
