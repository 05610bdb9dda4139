package traffic

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxFeedLine = 64 * 1024

// Registry receives every accepted feed line.
type Registry interface {
	Broadcast(line string)
}

// Broadcaster applies feed lines to the table and forwards them to the registry.
type Broadcaster struct {
	table    *Table
	registry Registry
	log      *zap.Logger
}

func NewBroadcaster(table *Table, registry Registry, log *zap.Logger) *Broadcaster {
	return &Broadcaster{table: table, registry: registry, log: log}
}

// Consume reads r until EOF or ctx is done. Malformed lines, including lines longer than
// maxFeedLine, are logged and dropped.
func (b *Broadcaster) Consume(ctx context.Context, r io.Reader) error {
	br := bufio.NewReaderSize(r, maxFeedLine)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			b.log.Warn("dropping traffic line", zap.Error(ErrMalformedLine), zap.Int("max_length", maxFeedLine))
			err = skipLine(br)
		} else if len(raw) > 0 {
			b.apply(string(raw))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// skipLine discards input up to and including the next newline.
func skipLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (b *Broadcaster) apply(raw string) {
	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		return
	}
	entry, err := ParseLine(line)
	if err != nil {
		b.log.Warn("dropping traffic line", zap.Error(err))
		return
	}
	b.table.Set(entry)
	b.registry.Broadcast(line)
}

// Run dials the feed at addr and consumes it, reconnecting after reconnectDelay whenever the
// connection fails or ends, until ctx is done.
func (b *Broadcaster) Run(ctx context.Context, addr string, reconnectDelay time.Duration) error {
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			b.log.Info("connected to traffic feed", zap.String("addr", addr))
			err = b.consumeConn(ctx, conn)
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			b.log.Warn("traffic feed failed", zap.String("addr", addr), zap.Error(err))
		} else {
			b.log.Info("traffic feed closed", zap.String("addr", addr))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (b *Broadcaster) consumeConn(ctx context.Context, conn net.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	err := b.Consume(ctx, conn)
	if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
		return nil
	}
	return err
}
