package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/navigatorx-maps/pkg/autocomplete"
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/graph"
	"github.com/lintang-b-s/navigatorx-maps/pkg/http"
	"github.com/lintang-b-s/navigatorx-maps/pkg/logger"
	"github.com/lintang-b-s/navigatorx-maps/pkg/server"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
	"github.com/lintang-b-s/navigatorx-maps/pkg/usecases"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configDir = flag.String("config", "./data", "directory holding the config file")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck // ignore

	if err := run(log); err != nil {
		log.Fatal("navigatorx maps server failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := util.ReadConfig(*configDir)
	if err != nil {
		return err
	}

	ds, err := dataset.Open(dataset.Files{
		Nodes:        cfg.NodesFile,
		Ways:         cfg.WaysFile,
		Index:        cfg.IndexFile,
		VerifySorted: cfg.VerifySorted,
		CacheSize:    cfg.WayCacheSize,
	}, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	points := make([]spatialindex.Point, 0)
	err = ds.ForEachNode(func(n da.Node) error {
		points = append(points, spatialindex.NewPoint(n.ID, n.Lat, n.Lon))
		return nil
	})
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return errors.New("nodes file has no usable nodes")
	}
	log.Info("building spatial indexes", zap.Int("nodes", len(points)))
	kdtree := spatialindex.Build(points)
	rtree := spatialindex.NewRtree()
	rtree.Build(points, log)

	table := traffic.NewTable()
	engine := routing.NewEngine(graph.NewMapsDataProvider(ds, log), table)
	suggester := autocomplete.NewIndexSuggester(ds, 0, nil)
	maps := usecases.NewMapsService(log, ds, kdtree, rtree, engine, suggester, table)

	hub := server.NewHub(cfg.BroadcastWriteTimeout, log)
	defer hub.CloseAll()
	srv := server.New(server.NewConfig(cfg), maps, hub, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return http.NewServer(log).Run(ctx, cfg, maps, hub)
	})
	if cfg.TrafficEnabled() {
		broadcaster := traffic.NewBroadcaster(table, hub, log)
		g.Go(func() error {
			return broadcaster.Run(ctx, cfg.TrafficAddr(), cfg.TrafficReconnectDelay)
		})
	} else {
		log.Info("traffic feed disabled")
	}

	err = g.Wait()
	log.Info("navigatorx maps server stopped")
	return err
}
