package routing

import (
	"context"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
)

// Dijkstra is one single pair query. Nodes are expanded only when popped off the frontier.
type Dijkstra struct {
	engine *Engine

	info map[graph.Index]*VertexInfo
	pq   *da.MinHeap[graph.Index]

	numSettledNodes int
}

func NewDijkstra(engine *Engine) *Dijkstra {
	return &Dijkstra{
		engine: engine,
		info:   make(map[graph.Index]*VertexInfo),
		pq:     da.NewFourAryHeap[graph.Index](),
	}
}

// ShortestPath returns the cheapest route from startID to endID. Between equally cheap routes
// the one discovered first wins.
func (e *Engine) ShortestPath(ctx context.Context, startID, endID string) (Route, error) {
	s, err := e.provider.GetNode(startID)
	if err != nil {
		return Route{}, err
	}
	t, err := e.provider.GetNode(endID)
	if err != nil {
		return Route{}, err
	}
	if s.Index() == t.Index() {
		return Route{Ways: []da.Way{}}, nil
	}
	return NewDijkstra(e).ShortestPath(ctx, s, t)
}

func (us *Dijkstra) ShortestPath(ctx context.Context, s, t *graph.GraphNode) (Route, error) {
	sNode := da.NewPriorityQueueNode(0, s.Index())
	us.pq.Insert(sNode)
	us.info[s.Index()] = NewVertexInfo(0, vertexEdgePair{}, sNode)

	for !us.pq.IsEmpty() {
		if util.StopConcurrentOperation(ctx) {
			return Route{}, ctx.Err()
		}

		found, err := us.graphSearchUni(t.Index())
		if err != nil {
			return Route{}, err
		}
		if found {
			return us.route(s.Index(), t.Index()), nil
		}
	}
	return Route{}, util.WrapErrorf(ErrNoRoute, util.ErrNotFound, "no route from %s to %s", s.ID(), t.ID())
}

// graphSearchUni settles the cheapest queued node and relaxes its outgoing ways. It reports
// whether the settled node is the target.
func (us *Dijkstra) graphSearchUni(target graph.Index) (bool, error) {
	pqNode, err := us.pq.ExtractMin()
	if err != nil {
		return false, err
	}
	uId := pqNode.GetItem()
	uInfo := us.info[uId]
	uInfo.settled = true
	uInfo.pqNode = nil
	us.numSettledNodes++

	if uId == target {
		return true, nil
	}

	u := us.engine.provider.Node(uId)
	edges, err := us.engine.provider.Neighbors(u)
	if err != nil {
		return false, err
	}

	for _, edge := range edges {
		vId := edge.Head
		way := edge.Way
		if !way.HasLength() {
			way.Length = us.engine.edgeLength(u, edge)
		}
		newDist := uInfo.dist + way.Length*us.engine.trafficWeight(way)

		vInfo, ok := us.info[vId]
		switch {
		case !ok:
			vNode := da.NewPriorityQueueNode(newDist, vId)
			us.pq.Insert(vNode)
			us.info[vId] = NewVertexInfo(newDist, newVertexEdgePair(uId, way), vNode)
		case vInfo.settled:
		case newDist < vInfo.dist:
			vInfo.dist = newDist
			vInfo.parent = newVertexEdgePair(uId, way)
			if err := us.pq.DecreaseKey(vInfo.pqNode, newDist); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (us *Dijkstra) route(s, t graph.Index) Route {
	ways := make([]da.Way, 0)
	for cur := t; cur != s; {
		parent := us.info[cur].GetParent()
		ways = append(ways, parent.getWay())
		cur = parent.getVertex()
	}
	for i, j := 0, len(ways)-1; i < j; i, j = i+1, j-1 {
		ways[i], ways[j] = ways[j], ways[i]
	}
	return Route{Ways: ways, Distance: us.info[t].GetDist()}
}

func (us *Dijkstra) GetNumSettledNodes() int {
	return us.numSettledNodes
}
