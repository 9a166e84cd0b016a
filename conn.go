package wsserver

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Conn represents one accepted WebSocket connection.
//
// A Conn exclusively owns its socket and receive buffer. It begins open,
// right after the handshake response is written, and transitions to closed
// exactly once: when the socket errors, the peer sends a zero length
// payload, a protocol error is detected or the owner calls Close.
type Conn struct {
	id      string
	rwc     net.Conn
	handler Handler
	logger  *slog.Logger
	limiter *rate.Limiter

	// readBuf is reused across reads. Decoded payloads are copied out of it
	// so they never alias the buffer.
	readBuf []byte

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.Mutex
	closed  chan struct{}
}

type connConfig struct {
	rwc       net.Conn
	handler   Handler
	logger    *slog.Logger
	bufSize   int
	readLimit rate.Limit
}

const defaultReadBufferSize = 4096

func newConn(cfg connConfig) *Conn {
	c := &Conn{
		id:      uuid.NewString(),
		rwc:     cfg.rwc,
		handler: cfg.handler,
		closed:  make(chan struct{}),
	}
	c.logger = cfg.logger.With(slog.String("conn", c.id))

	bufSize := cfg.bufSize
	if bufSize <= 0 {
		bufSize = defaultReadBufferSize
	}
	c.readBuf = make([]byte, bufSize)

	if cfg.readLimit > 0 {
		c.limiter = rate.NewLimiter(cfg.readLimit, 1)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	return c
}

// ID returns the connection's opaque unique identity.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.rwc.RemoteAddr()
}

// readLoop reads frames until the connection dies. Reads are strictly
// sequential, one outstanding at a time, so per connection message order is
// preserved.
func (c *Conn) readLoop() {
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(c.ctx); err != nil {
				return
			}
		}

		n, err := c.rwc.Read(c.readBuf)
		if err != nil {
			// A failed read is a normal disconnect, never an error to
			// surface past this connection.
			c.close()
			return
		}
		if n < 2 {
			continue
		}

		payload, err := decodeText(c.readBuf[:n])
		if err != nil {
			c.logger.Debug("terminating connection on protocol error", slog.Any("err", err))
			c.close()
			return
		}
		if len(payload) == 0 {
			c.close()
			return
		}

		c.handler.MessageReceived(c, string(payload), len(payload))
	}
}

// Send encodes text into a single frame and writes it atomically to the
// peer. Send on a closed connection is a no-op. A failed write closes the
// connection and is reported through the Disconnected event rather than
// raised to the caller.
func (c *Conn) Send(text string) {
	if c.isClosed() {
		return
	}

	frame := encodeText([]byte(text))

	c.writeMu.Lock()
	_, err := c.rwc.Write(frame)
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Debug("write failed, closing connection", slog.Any("err", err))
		c.close()
	}
}

// Close closes the connection and releases its socket. It is idempotent and
// safe to call concurrently; the Disconnected event fires exactly once per
// connection lifetime.
func (c *Conn) Close() {
	c.close()
}

func (c *Conn) close() {
	c.closeMu.Lock()
	if c.isClosed() {
		c.closeMu.Unlock()
		return
	}
	close(c.closed)
	c.closeMu.Unlock()

	c.cancel()
	c.rwc.Close()
	c.handler.Disconnected(c)
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
