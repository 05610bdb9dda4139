package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/navigatorx-maps/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/navigatorx-maps/pkg/http/router/routerhelper"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Config struct {
	Port    int
	Timeout time.Duration
}

// TrafficHub hands hijacked websocket connections over to the traffic broadcast hub.
type TrafficHub interface {
	ServeWebsocket(conn net.Conn)
}

type API struct {
	log *zap.Logger
	hub TrafficHub
}

func NewAPI(log *zap.Logger, hub TrafficHub) *API {
	return &API{log: log, hub: hub}
}

func (api *API) Handler(maps controllers.MapsService) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	group := router_helper.NewRouteGroup(router, "/api")
	controllers.New(maps, api.log).Routes(group)

	router.GET("/ws/traffic", api.handleTrafficWebsocket)

	return alice.New(corsHandler.Handler, api.recoverPanic, RealIP,
		Heartbeat("/healthz"), Logger(api.log)).Then(router)
}

// Run serves the admin API on config.Port until ctx is cancelled.
func (api *API) Run(ctx context.Context, config Config, maps controllers.MapsService) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: api.Handler(maps),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.Timeout,
		IdleTimeout:       2 * config.Timeout,
	}
	api.log.Info(fmt.Sprintf("admin API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		api.log.Info("context canceled, shutting down admin API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
