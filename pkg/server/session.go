package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lintang-b-s/navigatorx-maps/pkg/server/protocol"
)

type sessionState int32

const (
	stateAccepted sessionState = iota
	stateAwaitingRequestTag
	stateDispatching
	stateResponding
	stateSubscribed
	stateError
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAccepted:
		return "accepted"
	case stateAwaitingRequestTag:
		return "awaiting-request"
	case stateDispatching:
		return "dispatching"
	case stateResponding:
		return "responding"
	case stateSubscribed:
		return "subscribed"
	case stateError:
		return "error"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// session is one accepted connection.
type session struct {
	id     uint64
	name   string
	conn   net.Conn
	reader *bufio.Reader

	state     atomic.Int32
	closeOnce sync.Once

	// held by the watchdog while checking the socket, and by the worker before it starts
	// reading again
	aliveMu sync.Mutex
}

func newSession(id uint64, conn net.Conn) *session {
	s := &session{
		id:     id,
		name:   nameConn(conn),
		conn:   conn,
		reader: protocol.NewReader(conn),
	}
	s.setState(stateAccepted)
	return s
}

func (s *session) setState(st sessionState) {
	s.state.Store(int32(st))
}

func (s *session) getState() sessionState {
	return sessionState(s.state.Load())
}

func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.setState(stateClosed)
		err = s.conn.Close()
	})
	return err
}

// peerAlive reports whether the peer still holds its end open. A peer that only shut down
// its write side has sent io.EOF but still reads, so it counts as alive. The check is skipped
// once the worker has left the dispatching state and owns the reader again.
func (s *session) peerAlive() bool {
	s.aliveMu.Lock()
	defer s.aliveMu.Unlock()

	if s.getState() != stateDispatching {
		return true
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return false
	}
	defer s.conn.SetReadDeadline(time.Time{})

	var b [1]byte
	_, err := s.conn.Read(b[:])
	var ne net.Error
	switch {
	case err == nil:
		return true
	case errors.As(err, &ne) && ne.Timeout():
		return true
	case errors.Is(err, io.EOF):
		return true
	}
	// connection reset, broken pipe or closed
	return false
}
