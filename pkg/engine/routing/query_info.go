package routing

import (
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
)

// VertexInfo is the search label of a reached node: its tentative cost, the edge it was
// reached through and its frontier entry while it is still queued.
type VertexInfo struct {
	dist    float64
	parent  vertexEdgePair
	pqNode  *da.PriorityQueueNode[graph.Index]
	settled bool
}

func NewVertexInfo(dist float64, parent vertexEdgePair, pqNode *da.PriorityQueueNode[graph.Index]) *VertexInfo {
	return &VertexInfo{dist: dist, parent: parent, pqNode: pqNode}
}

func (vi *VertexInfo) GetDist() float64 {
	return vi.dist
}

func (vi *VertexInfo) GetParent() vertexEdgePair {
	return vi.parent
}

type vertexEdgePair struct {
	vertex graph.Index
	way    da.Way
}

func newVertexEdgePair(vertex graph.Index, way da.Way) vertexEdgePair {
	return vertexEdgePair{vertex: vertex, way: way}
}

func (ve vertexEdgePair) getVertex() graph.Index {
	return ve.vertex
}

func (ve vertexEdgePair) getWay() da.Way {
	return ve.way
}
