package server

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}

// tcpSubscriber receives broadcast lines on a subscribed protocol session.
type tcpSubscriber struct {
	io   sync.Mutex
	sess *session
}

func (s *tcpSubscriber) WriteLine(line string, deadline time.Time) error {
	s.io.Lock()
	defer s.io.Unlock()
	if err := s.sess.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := s.sess.conn.Write([]byte(line + "\n"))
	return err
}

func (s *tcpSubscriber) Close() error {
	return s.sess.close()
}

func (s *tcpSubscriber) Name() string {
	return s.sess.name
}

// wsSubscriber receives broadcast lines as websocket text frames.
type wsSubscriber struct {
	io        sync.Mutex
	conn      net.Conn
	name      string
	closeOnce sync.Once
}

func (s *wsSubscriber) WriteLine(line string, deadline time.Time) error {
	s.io.Lock()
	defer s.io.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteServerText(s.conn, []byte(line))
}

func (s *wsSubscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscriber) Name() string {
	return s.name
}

// ServeWebsocket subscribes an upgraded websocket connection and blocks until the client goes
// away or the subscription is dropped. Client frames are only used to answer control frames.
func (h *Hub) ServeWebsocket(conn net.Conn) {
	sub := &wsSubscriber{conn: conn, name: nameConn(conn)}
	id := h.Register(sub)
	defer h.Remove(id)

	for {
		hdr, r, err := wsutil.NextReader(conn, ws.StateServerSide)
		if err != nil {
			h.log.Debug("websocket subscriber gone", zap.String("conn", sub.name), zap.Error(err))
			return
		}
		if hdr.OpCode.IsControl() {
			sub.io.Lock()
			err = wsutil.ControlFrameHandler(conn, ws.StateServerSide)(hdr, r)
			sub.io.Unlock()
			if err != nil {
				// a close frame ends up here as wsutil.ClosedError
				return
			}
			continue
		}
		if _, err := io.Copy(io.Discard, r); err != nil {
			return
		}
	}
}
