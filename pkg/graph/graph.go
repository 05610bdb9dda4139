package graph

import (
	"errors"
	"fmt"
	"sync"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
)

var ErrDataProvider = errors.New("data provider error")

// Index is the arena position of a GraphNode.
type Index uint32

// Backend supplies node and way records, *dataset.Dataset in production.
type Backend interface {
	Node(id string) (da.Node, error)
	Way(id string) (da.Way, error)
}

// Edge is an outgoing way. Head is the arena index of the way's end node.
type Edge struct {
	Way  da.Way
	Head Index
}

type GraphNode struct {
	index Index
	node  da.Node

	// guarded by the provider lock
	edges    []Edge
	expanded bool
}

func (n *GraphNode) Index() Index {
	return n.index
}

func (n *GraphNode) ID() string {
	return n.node.ID
}

func (n *GraphNode) Record() da.Node {
	return n.node
}

func (n *GraphNode) Coordinate() geo.Coordinate {
	return n.node.Coordinate()
}

type DataProvider interface {
	GetNode(id string) (*GraphNode, error)
	Node(i Index) *GraphNode
	Neighbors(n *GraphNode) ([]Edge, error)
	Len() int
}

// MapsDataProvider is a lazily loaded road graph. Nodes are fetched from the backend on first
// use and kept in an arena for the lifetime of the provider, one GraphNode per node id.
type MapsDataProvider struct {
	backend Backend
	log     *zap.Logger

	mu    sync.RWMutex
	nodes []*GraphNode
	byID  map[string]Index
}

func NewMapsDataProvider(backend Backend, log *zap.Logger) *MapsDataProvider {
	return &MapsDataProvider{
		backend: backend,
		log:     log,
		nodes:   make([]*GraphNode, 0),
		byID:    make(map[string]Index),
	}
}

func (p *MapsDataProvider) lookup(id string) (*GraphNode, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return p.nodes[i], true
}

// GetNode returns the GraphNode for id, loading the node record on first use. A node the
// backend does not know is reported as util.ErrNotFound, any other failure as ErrDataProvider.
func (p *MapsDataProvider) GetNode(id string) (*GraphNode, error) {
	if n, ok := p.lookup(id); ok {
		return n, nil
	}

	rec, err := p.backend.Node(id)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: loading node %s: %w", ErrDataProvider, id, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.byID[id]; ok {
		return p.nodes[i], nil
	}
	n := &GraphNode{index: Index(len(p.nodes)), node: rec}
	p.nodes = append(p.nodes, n)
	p.byID[id] = n.index
	return n, nil
}

// Node returns the node at arena index i, or nil.
func (p *MapsDataProvider) Node(i Index) *GraphNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(i) >= len(p.nodes) {
		return nil
	}
	return p.nodes[i]
}

func (p *MapsDataProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// Neighbors returns the ways leaving n. The first call fetches them from the backend, later
// calls return the edges memoized on the node. Concurrent first calls may both fetch, only the
// first result is kept.
func (p *MapsDataProvider) Neighbors(n *GraphNode) ([]Edge, error) {
	p.mu.RLock()
	if n.expanded {
		edges := n.edges
		p.mu.RUnlock()
		return edges, nil
	}
	p.mu.RUnlock()

	edges, err := p.expand(n)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !n.expanded {
		n.edges = edges
		n.expanded = true
	}
	return n.edges, nil
}

func (p *MapsDataProvider) expand(n *GraphNode) ([]Edge, error) {
	edges := make([]Edge, 0, len(n.node.Ways))
	for _, wayID := range n.node.Ways {
		w, err := p.backend.Way(wayID)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) || errors.Is(err, da.ErrMalformedRecord) {
				p.log.Debug("skipping way", zap.String("node", n.ID()), zap.String("way", wayID), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("%w: loading way %s: %w", ErrDataProvider, wayID, err)
		}
		// ways ending here are incoming
		if w.Start != n.ID() || w.End == w.Start {
			continue
		}

		head, err := p.GetNode(w.End)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) || errors.Is(err, da.ErrMalformedRecord) {
				p.log.Debug("skipping way to unknown node", zap.String("way", wayID), zap.Error(err))
				continue
			}
			return nil, err
		}
		edges = append(edges, Edge{Way: w, Head: head.Index()})
	}
	return edges, nil
}
