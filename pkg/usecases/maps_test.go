package usecases

import (
	"context"
	"testing"

	"github.com/lintang-b-s/navigatorx-maps/pkg/autocomplete"
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset/datasettest"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, f datasettest.Fixture) (*MapsService, *traffic.Table) {
	t.Helper()
	log := zap.NewNop()
	ds, err := dataset.Open(datasettest.Write(t, f), log)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	points := make([]spatialindex.Point, 0)
	require.NoError(t, ds.ForEachNode(func(n da.Node) error {
		points = append(points, spatialindex.NewPoint(n.ID, n.Lat, n.Lon))
		return nil
	}))
	rt := spatialindex.NewRtree()
	rt.Build(points, log)

	table := traffic.NewTable()
	engine := routing.NewEngine(graph.NewMapsDataProvider(ds, log), table)
	svc := NewMapsService(log, ds, spatialindex.Build(points), rt, engine,
		autocomplete.NewIndexSuggester(ds, 10, nil), table)
	return svc, table
}

func resolvedIDs(ways []da.ResolvedWay) []string {
	ids := make([]string, len(ways))
	for i, w := range ways {
		ids[i] = w.ID
	}
	return ids
}

func TestRouteByNames(t *testing.T) {
	svc, table := newTestService(t, datasettest.Triangle())
	ctx := context.Background()

	// First x Diagonal is A, Second x Diagonal is C
	r, err := svc.RouteByNames(ctx, "First", "Diagonal", "Second", "Diagonal")
	require.NoError(t, err)
	assert.Equal(t, "/n/a", r.From)
	assert.Equal(t, "/n/c", r.To)
	assert.Equal(t, []string{datasettest.WayID(0, 0, "ab"), datasettest.WayID(0, 1, "bc")}, resolvedIDs(r.Ways))
	assert.InDelta(t, 2.0, r.Distance, 1e-9)
	assert.Equal(t, []geo.Coordinate{
		geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 1), geo.NewCoordinate(1, 1),
	}, r.Coordinates())

	table.Set(traffic.Entry{StreetID: "Second", Weight: 10})
	r, err = svc.RouteByNames(ctx, "First", "Diagonal", "Second", "Diagonal")
	require.NoError(t, err)
	assert.Equal(t, []string{datasettest.WayID(0, 0, "ac")}, resolvedIDs(r.Ways))
	assert.Equal(t, []traffic.Entry{{StreetID: "Second", Weight: 10}}, svc.Traffic())

	_, err = svc.RouteByNames(ctx, "First", "Nowhere", "Second", "Diagonal")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRouteByPoints(t *testing.T) {
	svc, _ := newTestService(t, datasettest.Triangle())

	r, err := svc.RouteByPoints(context.Background(), geo.NewCoordinate(0.1, -0.1), geo.NewCoordinate(1.1, 0.9))
	require.NoError(t, err)
	assert.Equal(t, "/n/a", r.From)
	assert.Equal(t, "/n/c", r.To)
	assert.Len(t, r.Ways, 2)

	same, err := svc.RouteByPoints(context.Background(), geo.NewCoordinate(0, 0), geo.NewCoordinate(0.01, 0.01))
	require.NoError(t, err)
	assert.Empty(t, same.Ways)
	assert.Empty(t, same.Coordinates())
}

func TestNearestAndNearby(t *testing.T) {
	svc, _ := newTestService(t, datasettest.Triangle())

	p, err := svc.Nearest(geo.NewCoordinate(0.9, 1.2))
	require.NoError(t, err)
	assert.Equal(t, "/n/c", p.ID)

	near := svc.Nearby(geo.NewCoordinate(0, 0.5), 60, 0)
	ids := make([]string, len(near))
	for i, n := range near {
		ids[i] = n.ID
	}
	assert.ElementsMatch(t, []string{"/n/a", "/n/b"}, ids)

	suggestions, err := svc.Suggest("Fi")
	require.NoError(t, err)
	assert.Equal(t, []string{"First"}, suggestions)

	ways, err := svc.Chunk(geo.NewCoordinate(0.9, 0.9), geo.NewCoordinate(1.1, 1.1))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{datasettest.WayID(1, 1, "cb"), datasettest.WayID(1, 1, "ca")}, resolvedIDs(ways))
}

func TestNearestEmptyIndex(t *testing.T) {
	svc := NewMapsService(zap.NewNop(), nil, spatialindex.Build(nil), spatialindex.NewRtree(), nil, nil, traffic.NewTable())
	_, err := svc.Nearest(geo.NewCoordinate(0, 0))
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.ErrorIs(t, err, spatialindex.ErrEmptyIndex)
}
