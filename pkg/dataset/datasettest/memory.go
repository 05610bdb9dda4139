package datasettest

import (
	"sync"
	"sync/atomic"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
)

// Memory serves a fixture from maps. It counts lookups and can fail chosen ways with a given error.
type Memory struct {
	mu     sync.RWMutex
	nodes  map[string]da.Node
	ways   map[string]da.Way
	broken map[string]error

	NodeCalls atomic.Int64
	WayCalls  atomic.Int64
}

func NewMemory(f Fixture) *Memory {
	m := &Memory{
		nodes:  make(map[string]da.Node, len(f.Nodes)),
		ways:   make(map[string]da.Way, len(f.Ways)),
		broken: make(map[string]error),
	}
	touching := map[string][]string{}
	for _, w := range f.Ways {
		m.ways[w.ID] = w
		touching[w.Start] = append(touching[w.Start], w.ID)
		touching[w.End] = append(touching[w.End], w.ID)
	}
	for _, n := range f.Nodes {
		if len(n.Ways) == 0 {
			n.Ways = touching[n.ID]
		}
		m.nodes[n.ID] = n
	}
	return m
}

func (m *Memory) Node(id string) (da.Node, error) {
	m.NodeCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return da.Node{}, util.WrapErrorf(nil, util.ErrNotFound, "no node with id %s", id)
	}
	return n, nil
}

func (m *Memory) Way(id string) (da.Way, error) {
	m.WayCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.broken[id]; err != nil {
		return da.Way{}, err
	}
	w, ok := m.ways[id]
	if !ok {
		return da.Way{}, util.WrapErrorf(nil, util.ErrNotFound, "no way with id %s", id)
	}
	return w, nil
}

// Break makes lookups of way id fail with err, a nil err repairs it.
func (m *Memory) Break(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.broken, id)
		return
	}
	m.broken[id] = err
}

// AddWayToNode lists an extra way id on a node record.
func (m *Memory) AddWayToNode(nodeID, wayID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[nodeID]
	n.Ways = append(append([]string(nil), n.Ways...), wayID)
	m.nodes[nodeID] = n
}
