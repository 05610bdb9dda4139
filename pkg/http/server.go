package http

import (
	"context"

	http_router "github.com/lintang-b-s/navigatorx-maps/pkg/http/router"
	"github.com/lintang-b-s/navigatorx-maps/pkg/http/router/controllers"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Run serves the admin API until ctx is cancelled. A zero admin port disables it.
func (s *Server) Run(
	ctx context.Context,
	cfg util.Config,
	maps controllers.MapsService,
	hub http_router.TrafficHub,
) error {
	if cfg.AdminPort == 0 {
		s.Log.Info("admin API disabled")
		return nil
	}

	config := http_router.Config{
		Port:    cfg.AdminPort,
		Timeout: cfg.MaxRequestDuration,
	}
	return http_router.NewAPI(s.Log, hub).Run(ctx, config, maps)
}
