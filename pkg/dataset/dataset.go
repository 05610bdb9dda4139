package dataset

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/navigatorx-maps/pkg"
	"github.com/lintang-b-s/navigatorx-maps/pkg/concurrent"
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/recordstore"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
)

const (
	colID        = "id"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colWays      = "ways"
	colName      = "name"
	colStart     = "start"
	colEnd       = "end"
	colLength    = "length"
	colNodes     = "nodes"

	defaultCacheSize = 1 << 16
)

type Files struct {
	Nodes        string
	Ways         string
	Index        string
	VerifySorted bool
	CacheSize    int
}

type nodeColumns struct {
	id, lat, lon, ways int
}

type wayColumns struct {
	id, name, start, end, length int
}

type indexColumns struct {
	name, nodes int
}

// Dataset is the read-only road network: nodes and ways sorted by id and the street index
// sorted by name, each queried in place through a recordstore.Store.
type Dataset struct {
	nodes *recordstore.Store
	ways  *recordstore.Store
	index *recordstore.Store

	nodeCols  nodeColumns
	wayCols   wayColumns
	indexCols indexColumns

	nodeCache *lru.Cache[string, da.Node]
	wayCache  *lru.Cache[string, da.Way]

	workers int
	log     *zap.Logger
}

func Open(files Files, log *zap.Logger) (*Dataset, error) {
	opts := func(key string) []recordstore.Option {
		o := []recordstore.Option{recordstore.WithKeyField(key)}
		if files.VerifySorted {
			o = append(o, recordstore.WithSortVerification())
		}
		return o
	}

	log.Info("opening nodes file", zap.String("path", files.Nodes))
	nodes, err := recordstore.Open(files.Nodes, opts(colID)...)
	if err != nil {
		return nil, err
	}
	log.Info("opening ways file", zap.String("path", files.Ways))
	ways, err := recordstore.Open(files.Ways, opts(colID)...)
	if err != nil {
		nodes.Close()
		return nil, err
	}
	log.Info("opening street index file", zap.String("path", files.Index))
	index, err := recordstore.Open(files.Index, opts(colName)...)
	if err != nil {
		nodes.Close()
		ways.Close()
		return nil, err
	}

	d := &Dataset{nodes: nodes, ways: ways, index: index, log: log, workers: runtime.NumCPU()}
	if err := d.resolveColumns(); err != nil {
		d.Close()
		return nil, err
	}

	size := files.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	d.nodeCache, _ = lru.New[string, da.Node](size)
	d.wayCache, _ = lru.New[string, da.Way](size)
	return d, nil
}

func (d *Dataset) resolveColumns() error {
	var err error
	col := func(s *recordstore.Store, name string) int {
		if err != nil {
			return -1
		}
		var i int
		i, err = s.FieldIndex(name)
		return i
	}

	d.nodeCols = nodeColumns{
		id:   col(d.nodes, colID),
		lat:  col(d.nodes, colLatitude),
		lon:  col(d.nodes, colLongitude),
		ways: col(d.nodes, colWays),
	}
	d.wayCols = wayColumns{
		id:    col(d.ways, colID),
		name:  col(d.ways, colName),
		start: col(d.ways, colStart),
		end:   col(d.ways, colEnd),
	}
	d.indexCols = indexColumns{
		name:  col(d.index, colName),
		nodes: col(d.index, colNodes),
	}
	if err != nil {
		return err
	}

	// length is optional, ways without it get the haversine length of their endpoints
	if i, lerr := d.ways.FieldIndex(colLength); lerr == nil {
		d.wayCols.length = i
	} else {
		d.wayCols.length = -1
	}
	return nil
}

func (d *Dataset) Close() error {
	var errs []error
	for _, s := range []*recordstore.Store{d.nodes, d.ways, d.index} {
		if s != nil {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dataset) parseNode(r recordstore.Record) (da.Node, error) {
	id := r.Field(d.nodeCols.id)
	lat, err := util.StringToFloat64(r.Field(d.nodeCols.lat))
	if err != nil || id == "" {
		return da.Node{}, fmt.Errorf("%w: node %q has latitude %q", da.ErrMalformedRecord, id, r.Field(d.nodeCols.lat))
	}
	lon, err := util.StringToFloat64(r.Field(d.nodeCols.lon))
	if err != nil {
		return da.Node{}, fmt.Errorf("%w: node %q has longitude %q", da.ErrMalformedRecord, id, r.Field(d.nodeCols.lon))
	}
	return da.NewNode(id, lat, lon, util.SplitList(r.Field(d.nodeCols.ways))), nil
}

func (d *Dataset) parseWay(r recordstore.Record) (da.Way, error) {
	id := r.Field(d.wayCols.id)
	start, end := r.Field(d.wayCols.start), r.Field(d.wayCols.end)
	if id == "" || start == "" || end == "" {
		return da.Way{}, fmt.Errorf("%w: way %q needs both endpoints", da.ErrMalformedRecord, id)
	}

	length := da.UnknownLength
	if d.wayCols.length >= 0 {
		if raw := strings.TrimSpace(r.Field(d.wayCols.length)); raw != "" {
			l, err := util.StringToFloat64(raw)
			if err != nil || l < 0 || math.IsNaN(l) || math.IsInf(l, 0) {
				return da.Way{}, fmt.Errorf("%w: way %q has length %q", da.ErrMalformedRecord, id, raw)
			}
			length = l
		}
	}
	return da.NewWay(id, r.Field(d.wayCols.name), start, end, length), nil
}

// Node looks a node up by id. A missing id is reported as util.ErrNotFound.
func (d *Dataset) Node(id string) (da.Node, error) {
	if n, ok := d.nodeCache.Get(id); ok {
		return n, nil
	}
	rec, err := d.nodes.FindOne(id)
	if errors.Is(err, recordstore.ErrRecordNotFound) {
		return da.Node{}, util.WrapErrorf(err, util.ErrNotFound, "no node with id %s", id)
	}
	if err != nil {
		return da.Node{}, err
	}
	n, err := d.parseNode(rec)
	if err != nil {
		return da.Node{}, err
	}
	d.nodeCache.Add(id, n)
	return n, nil
}

// Way looks a way up by id. A missing id is reported as util.ErrNotFound.
func (d *Dataset) Way(id string) (da.Way, error) {
	if w, ok := d.wayCache.Get(id); ok {
		return w, nil
	}
	rec, err := d.ways.FindOne(id)
	if errors.Is(err, recordstore.ErrRecordNotFound) {
		return da.Way{}, util.WrapErrorf(err, util.ErrNotFound, "no way with id %s", id)
	}
	if err != nil {
		return da.Way{}, err
	}
	w, err := d.parseWay(rec)
	if err != nil {
		return da.Way{}, err
	}
	d.wayCache.Add(id, w)
	return w, nil
}

// ForEachNode streams every parsable node in file order. Malformed records are logged and skipped.
func (d *Dataset) ForEachNode(fn func(da.Node) error) error {
	skipped := 0
	err := d.nodes.Scan(func(r recordstore.Record) (bool, error) {
		n, err := d.parseNode(r)
		if err != nil {
			skipped++
			d.log.Debug("skipping node record", zap.Error(err))
			return true, nil
		}
		return true, fn(n)
	})
	if skipped > 0 {
		d.log.Warn("skipped malformed node records", zap.Int("count", skipped))
	}
	return err
}

func (d *Dataset) streetNodes(street string) ([]string, error) {
	recs, err := d.index.FindAll(street)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, util.WrapErrorf(recordstore.ErrRecordNotFound, util.ErrNotFound, "no street named %q", street)
	}
	ids := make([]string, 0)
	for _, r := range recs {
		ids = append(ids, util.SplitList(r.Field(d.indexCols.nodes))...)
	}
	return ids, nil
}

// Intersection returns the first node of streetA (in index order) that also lies on streetB.
func (d *Dataset) Intersection(streetA, streetB string) (da.Node, error) {
	nodesA, err := d.streetNodes(streetA)
	if err != nil {
		return da.Node{}, err
	}
	nodesB, err := d.streetNodes(streetB)
	if err != nil {
		return da.Node{}, err
	}

	onB := make(map[string]struct{}, len(nodesB))
	for _, id := range nodesB {
		onB[id] = struct{}{}
	}
	for _, id := range nodesA {
		if _, ok := onB[id]; ok {
			return d.Node(id)
		}
	}
	return da.Node{}, util.WrapErrorf(recordstore.ErrRecordNotFound, util.ErrNotFound,
		"no intersection between %q and %q", streetA, streetB)
}

// StreetNames returns up to limit distinct street names starting with prefix, in index order.
func (d *Dataset) StreetNames(prefix string, limit int) ([]string, error) {
	if prefix == "" {
		return []string{}, nil
	}
	recs, err := d.index.FindRange(prefix, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, util.MinInt(len(recs), limit))
	for _, r := range recs {
		name := r.Field(d.indexCols.name)
		if len(names) > 0 && names[len(names)-1] == name {
			continue
		}
		names = append(names, name)
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names, nil
}

// TilePrefix is the way id prefix of the chunk tile containing (lat, lon): "/w/" followed by
// floor(|lat|/tile) on four digits and floor(|lon|/tile) on five.
func TilePrefix(lat, lon float64) string {
	return tilePrefix(geo.TileIndex(lat, pkg.CHUNK_TILE_SIZE), geo.TileIndex(lon, pkg.CHUNK_TILE_SIZE))
}

func tilePrefix(latTile, lonTile int) string {
	return fmt.Sprintf("/w/%04d.%05d", latTile, lonTile)
}

// tileSpan returns the tile indexes covered by [a, b]. Tiles index absolute degrees, so a span
// crossing zero starts at tile 0.
func tileSpan(a, b float64) (int, int) {
	ta, tb := geo.TileIndex(a, pkg.CHUNK_TILE_SIZE), geo.TileIndex(b, pkg.CHUNK_TILE_SIZE)
	if ta > tb {
		ta, tb = tb, ta
	}
	if (a < 0) != (b < 0) {
		ta = 0
	}
	return ta, tb
}

// Chunk returns the ways with at least one endpoint inside the box spanned by a and b. Each
// tile row of the box is one range query over the way ids.
func (d *Dataset) Chunk(a, b geo.Coordinate) ([]da.ResolvedWay, error) {
	box := geo.NewBoundingBox(a, b)
	lo, hi := box.Min(), box.Max()
	latLo, latHi := tileSpan(lo.Lat, hi.Lat)
	lonLo, lonHi := tileSpan(lo.Lon, hi.Lon)

	candidates := make([]da.Way, 0)
	for latTile := latLo; latTile <= latHi; latTile++ {
		recs, err := d.ways.FindRange(tilePrefix(latTile, lonLo), tilePrefix(latTile, lonHi))
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			w, err := d.parseWay(r)
			if err != nil {
				d.log.Debug("skipping way record", zap.Error(err))
				continue
			}
			candidates = append(candidates, w)
		}
	}

	resolved, err := d.Resolve(candidates)
	if err != nil {
		return nil, err
	}
	inside := make([]da.ResolvedWay, 0, len(resolved))
	for _, w := range resolved {
		if box.Contains(w.From) || box.Contains(w.To) {
			inside = append(inside, w)
		}
	}
	return inside, nil
}

type resolveResult struct {
	way da.ResolvedWay
	err error
}

// Resolve attaches endpoint coordinates (and a length where the file had none) to ways,
// looking the endpoints up in parallel. Ways whose endpoints are missing are dropped.
func (d *Dataset) Resolve(ways []da.Way) ([]da.ResolvedWay, error) {
	results := concurrent.Map(d.workers, ways, func(w da.Way) resolveResult {
		from, err := d.Node(w.Start)
		if err != nil {
			return resolveResult{err: err}
		}
		to, err := d.Node(w.End)
		if err != nil {
			return resolveResult{err: err}
		}
		return resolveResult{way: da.NewResolvedWay(w, from, to)}
	})

	out := make([]da.ResolvedWay, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			if errors.Is(r.err, util.ErrNotFound) || errors.Is(r.err, da.ErrMalformedRecord) {
				d.log.Debug("dropping way with unresolvable endpoint", zap.String("way", ways[i].ID), zap.Error(r.err))
				continue
			}
			return nil, r.err
		}
		out = append(out, r.way)
	}
	return out, nil
}
