package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/navigatorx-maps/pkg/autocomplete"
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset/datasettest"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
	"github.com/lintang-b-s/navigatorx-maps/pkg/server"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
	"github.com/lintang-b-s/navigatorx-maps/pkg/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

type testAPI struct {
	srv   *httptest.Server
	hub   *server.Hub
	table *traffic.Table
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	log := zap.NewNop()
	ds, err := dataset.Open(datasettest.Write(t, datasettest.Triangle()), log)
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
	maps := usecases.NewMapsService(log, ds, spatialindex.Build(points), rt, engine,
		autocomplete.NewIndexSuggester(ds, 10, nil), table)

	hub := server.NewHub(time.Second, log)
	srv := httptest.NewServer(NewAPI(log, hub).Handler(maps))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return testAPI{srv: srv, hub: hub, table: table}
}

func (a testAPI) get(t *testing.T, path string, data any) int {
	t.Helper()
	resp, err := http.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if data != nil && resp.StatusCode == http.StatusOK {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Get(a.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ".", string(body))
}

func TestRoute(t *testing.T) {
	a := newTestAPI(t)

	var route struct {
		From string  `json:"from"`
		To   string  `json:"to"`
		Path string  `json:"path"`
		Dist float64 `json:"distance"`
		Ways []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"ways"`
	}
	status := a.get(t, "/api/route?origin_lat=0&origin_lon=0&destination_lat=1&destination_lon=1", &route)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "/n/a", route.From)
	assert.Equal(t, "/n/c", route.To)
	assert.InDelta(t, 2.0, route.Dist, 1e-9)
	require.Len(t, route.Ways, 2)
	assert.Equal(t, "First", route.Ways[0].Name)
	assert.Equal(t, "Second", route.Ways[1].Name)

	coords, _, err := polyline.DecodeCoords([]byte(route.Path))
	require.NoError(t, err)
	require.Len(t, coords, 3)
	assert.InDelta(t, 0.0, coords[0][0], 1e-5)
	assert.InDelta(t, 1.0, coords[1][1], 1e-5)
	assert.InDelta(t, 1.0, coords[2][0], 1e-5)
}

func TestRouteBadParams(t *testing.T) {
	a := newTestAPI(t)

	testCases := []struct {
		name string
		path string
	}{
		{name: "missing", path: "/api/route?origin_lat=0&origin_lon=0&destination_lat=1"},
		{name: "not a number", path: "/api/route?origin_lat=x&origin_lon=0&destination_lat=1&destination_lon=1"},
		{name: "out of range", path: "/api/route?origin_lat=91&origin_lon=0&destination_lat=1&destination_lon=1"},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, a.get(t, tt.path, nil))
		})
	}
}

func TestNearestAndNearby(t *testing.T) {
	a := newTestAPI(t)

	var node struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, a.get(t, "/api/nearest?lat=0.1&lon=0.9", &node))
	assert.Equal(t, "/n/b", node.ID)

	var nodes []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, a.get(t, "/api/nearby?lat=0&lon=0&radius=120", &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, "/n/a", nodes[0].ID)
	assert.Equal(t, "/n/b", nodes[1].ID)

	require.Equal(t, http.StatusOK, a.get(t, "/api/nearby?lat=0&lon=0&radius=5", &nodes))
	assert.Len(t, nodes, 1)

	assert.Equal(t, http.StatusBadRequest, a.get(t, "/api/nearby?lat=0&lon=0&radius=0", nil))
	assert.Equal(t, http.StatusBadRequest, a.get(t, "/api/nearest?lat=0&lon=200", nil))
}

func TestChunkAndAutocomplete(t *testing.T) {
	a := newTestAPI(t)

	var ways []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, a.get(t, "/api/chunk?min_lat=-0.5&min_lon=-0.5&max_lat=0.5&max_lon=0.5", &ways))
	ids := make([]string, len(ways))
	for i, w := range ways {
		ids[i] = w.ID
	}
	assert.ElementsMatch(t, []string{
		datasettest.WayID(0, 0, "ab"),
		datasettest.WayID(0, 0, "ac"),
	}, ids)

	var names []string
	require.Equal(t, http.StatusOK, a.get(t, "/api/autocomplete?q=Fi", &names))
	assert.Contains(t, names, "First")
	assert.NotContains(t, names, "Second")

	assert.Equal(t, http.StatusBadRequest, a.get(t, "/api/autocomplete", nil))
}

func TestTrafficSnapshot(t *testing.T) {
	a := newTestAPI(t)
	a.table.Set(traffic.Entry{StreetID: "First", Weight: 3})

	var snap struct {
		Entries []traffic.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	require.Equal(t, http.StatusOK, a.get(t, "/api/traffic", &snap))
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, []traffic.Entry{{StreetID: "First", Weight: 3}}, snap.Entries)
}

func TestTrafficWebsocket(t *testing.T) {
	a := newTestAPI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/ws/traffic"
	conn, _, _, err := ws.Dial(ctx, url)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.hub.Broadcast("First\t2.5")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msg, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	assert.Equal(t, "First\t2.5", strings.TrimRight(string(msg), "\n"))

	conn.Close()
	assert.Eventually(t, func() bool { return a.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
