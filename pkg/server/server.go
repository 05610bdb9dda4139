package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/server/protocol"
	"github.com/lintang-b-s/navigatorx-maps/pkg/usecases"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const acceptRetryDelay = 5 * time.Millisecond

type MapsService interface {
	Suggest(prefix string) ([]string, error)
	RouteByNames(ctx context.Context, a1, a2, b1, b2 string) (usecases.RouteResult, error)
	RouteByPoints(ctx context.Context, p1, p2 geo.Coordinate) (usecases.RouteResult, error)
	Chunk(p1, p2 geo.Coordinate) ([]da.ResolvedWay, error)
}

type Config struct {
	Addr string

	// how long a client may take to send its request, and how often the watchdog checks on
	// a request being dispatched
	GracePeriod time.Duration
	// hard cap on dispatching a single request
	MaxRequestDuration time.Duration

	AcceptRate  float64
	AcceptBurst int
}

func NewConfig(cfg util.Config) Config {
	return Config{
		Addr:               cfg.ServerAddr(),
		GracePeriod:        cfg.GracePeriod,
		MaxRequestDuration: cfg.MaxRequestDuration,
		AcceptRate:         cfg.AcceptRate,
		AcceptBurst:        cfg.AcceptBurst,
	}
}

type response struct {
	tag   protocol.ResponseTag
	lines []string
}

// handlerFunc answers one request. A nil response means the session was kept as a traffic
// subscription and has already ended.
type handlerFunc func(ctx context.Context, sess *session, req protocol.Request) (*response, error)

// Server is the TCP protocol listener. It is built once and shared by every session.
type Server struct {
	cfg  Config
	maps MapsService
	hub  *Hub
	log  *zap.Logger

	handlers map[protocol.Tag]handlerFunc

	seq  atomic.Uint64
	wg   sync.WaitGroup
	addr chan net.Addr
}

func New(cfg Config, maps MapsService, hub *Hub, log *zap.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		maps: maps,
		hub:  hub,
		log:  log,
		addr: make(chan net.Addr, 1),
	}
	s.handlers = map[protocol.Tag]handlerFunc{
		protocol.TagAutocomplete:     s.autocomplete,
		protocol.TagRouteByNames:     s.routeByNames,
		protocol.TagRouteByPoints:    s.routeByPoints,
		protocol.TagMapChunk:         s.mapChunk,
		protocol.TagTrafficSubscribe: s.trafficSubscribe,
	}
	return s
}

// Addr blocks until the server is listening and returns the listener address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case a := <-s.addr:
		s.addr <- a
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes the listener and waits for
// the open sessions to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.addr <- ln.Addr()
	s.log.Info(fmt.Sprintf("protocol server listening on %s", ln.Addr()))

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()
	defer s.wg.Wait()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.AcceptRate), s.cfg.AcceptBurst)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Sugar().Infof("accept error: %v; retrying in %s", err, acceptRetryDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// serveConn runs the request worker and supervises it until it finishes, the peer goes away
// or the request runs out of time.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	sess := newSession(s.seq.Add(1), conn)
	log := s.log.With(zap.Uint64("session", sess.id), zap.String("conn", sess.name))

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while serving request", zap.Any("panic", r), zap.StackSkip("stack", 1))
				sess.setState(stateError)
				s.writeError(sess, log, util.WrapErrorf(nil, util.ErrInternalServerError, "%s", util.MessageInternalServerError))
			}
		}()
		s.handle(reqCtx, sess, log)
	}()

	s.supervise(ctx, cancel, sess, log, done)
}

func (s *Server) supervise(ctx context.Context, cancel context.CancelFunc, sess *session, log *zap.Logger,
	done <-chan struct{}) {
	started := time.Now()
	timer := time.NewTimer(s.cfg.GracePeriod)
	defer timer.Stop()

	abort := func(reason string) {
		log.Warn("closing session", zap.String("reason", reason), zap.String("state", sess.getState().String()),
			zap.Duration("elapsed", time.Since(started)))
		cancel()
		sess.close()
		<-done
	}

	for {
		select {
		case <-done:
			sess.close()
			return
		case <-ctx.Done():
			abort("server shutting down")
			return
		case <-timer.C:
			if sess.getState() == stateDispatching {
				if time.Since(started) > s.cfg.MaxRequestDuration {
					abort("request took too long")
					return
				}
				if !sess.peerAlive() {
					abort("peer disconnected")
					return
				}
			}
			timer.Reset(s.cfg.GracePeriod)
		}
	}
}

func (s *Server) handle(ctx context.Context, sess *session, log *zap.Logger) {
	sess.setState(stateAwaitingRequestTag)
	sess.conn.SetReadDeadline(time.Now().Add(s.cfg.GracePeriod))

	req, err := protocol.ReadRequest(sess.reader)
	if err != nil {
		sess.setState(stateError)
		s.writeError(sess, log, err)
		return
	}
	sess.conn.SetReadDeadline(time.Time{})

	sess.setState(stateDispatching)
	start := time.Now()
	resp, err := s.handlers[req.Tag](ctx, sess, req)
	if err != nil {
		sess.setState(stateError)
		s.writeError(sess, log, err)
		return
	}
	if resp == nil {
		return
	}

	sess.setState(stateResponding)
	sess.conn.SetWriteDeadline(time.Now().Add(s.cfg.GracePeriod))
	if err := protocol.WriteResponse(sess.conn, resp.tag, resp.lines); err != nil {
		log.Debug("writing response", zap.Error(err))
		return
	}
	log.Info("request served", zap.String("request", req.Tag.String()), zap.Int("lines", len(resp.lines)),
		zap.Duration("took", time.Since(start)))
}

// writeError sends err as an error response. Errors outside the user facing taxonomy are
// logged and replaced by a generic message.
func (s *Server) writeError(sess *session, log *zap.Logger, err error) {
	msg := errorMessage(err)
	if msg == "" {
		log.Error("request failed", zap.Error(err))
		msg = util.MessageInternalServerError
	} else {
		log.Info("request rejected", zap.String("reason", msg))
	}

	sess.conn.SetWriteDeadline(time.Now().Add(s.cfg.GracePeriod))
	if werr := protocol.WriteError(sess.conn, msg); werr != nil {
		log.Debug("writing error response", zap.Error(werr))
	}
}

func errorMessage(err error) string {
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		return "request timed out"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	case errors.Is(err, protocol.ErrProtocol),
		errors.Is(err, routing.ErrNoRoute),
		errors.Is(err, util.ErrNotFound),
		errors.Is(err, util.ErrBadParamInput):
		return err.Error()
	}
	return ""
}

func (s *Server) autocomplete(_ context.Context, _ *session, req protocol.Request) (*response, error) {
	names, err := s.maps.Suggest(req.Params[0])
	if err != nil {
		return nil, err
	}
	return &response{tag: protocol.AutocompleteResponse, lines: names}, nil
}

func (s *Server) routeByNames(ctx context.Context, _ *session, req protocol.Request) (*response, error) {
	p := req.Params
	r, err := s.maps.RouteByNames(ctx, p[0], p[1], p[2], p[3])
	if err != nil {
		return nil, err
	}
	return &response{tag: protocol.RouteResponse, lines: protocol.EncodeWays(r.Ways)}, nil
}

func parseCorners(req protocol.Request) (geo.Coordinate, geo.Coordinate, error) {
	p1, err := protocol.ParseCoordinate(req.Params[0])
	if err != nil {
		return geo.Coordinate{}, geo.Coordinate{}, err
	}
	p2, err := protocol.ParseCoordinate(req.Params[1])
	if err != nil {
		return geo.Coordinate{}, geo.Coordinate{}, err
	}
	return p1, p2, nil
}

func (s *Server) routeByPoints(ctx context.Context, _ *session, req protocol.Request) (*response, error) {
	p1, p2, err := parseCorners(req)
	if err != nil {
		return nil, err
	}
	r, err := s.maps.RouteByPoints(ctx, p1, p2)
	if err != nil {
		return nil, err
	}
	return &response{tag: protocol.RouteResponse, lines: protocol.EncodeWays(r.Ways)}, nil
}

func (s *Server) mapChunk(_ context.Context, _ *session, req protocol.Request) (*response, error) {
	p1, p2, err := parseCorners(req)
	if err != nil {
		return nil, err
	}
	ways, err := s.maps.Chunk(p1, p2)
	if err != nil {
		return nil, err
	}
	return &response{tag: protocol.MapChunkResponse, lines: protocol.EncodeWays(ways)}, nil
}

// trafficSubscribe keeps the session registered in the hub until the peer closes it, the
// server shuts down or a broadcast write fails.
func (s *Server) trafficSubscribe(_ context.Context, sess *session, _ protocol.Request) (*response, error) {
	sess.aliveMu.Lock()
	sess.setState(stateSubscribed)
	sess.aliveMu.Unlock()

	id := s.hub.Register(&tcpSubscriber{sess: sess})
	defer s.hub.Remove(id)

	sess.conn.SetReadDeadline(time.Time{})
	io.Copy(io.Discard, sess.reader)
	return nil, nil
}
