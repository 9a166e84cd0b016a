package wsserver

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ushadow/wsserver/internal/logging"
)

// Options configures a Listener. The zero value is valid.
type Options struct {
	// Logger receives structured logs from the Listener and its
	// connections. Defaults to a discarding logger.
	Logger *slog.Logger

	// ReadBufferSize is the size of each connection's reusable receive
	// buffer and bounds the largest inbound frame. Defaults to 4096.
	ReadBufferSize int

	// ReadLimit caps inbound messages per second per connection.
	// Zero means unlimited.
	ReadLimit rate.Limit

	// HandshakeTimeout bounds how long an accepted socket may take to
	// deliver its upgrade request. Defaults to 10 seconds.
	HandshakeTimeout time.Duration
}

const defaultHandshakeTimeout = 10 * time.Second

// Listener accepts raw TCP connections, upgrades them via the RFC 6455
// handshake and hands the resulting Conns to the Handler.
type Listener struct {
	addr    string
	handler Handler
	logger  *slog.Logger

	readBufferSize   int
	readLimit        rate.Limit
	handshakeTimeout time.Duration

	mu      sync.Mutex
	ln      net.Listener
	started bool
}

// NewListener returns a Listener that will bind addr once started.
// The Handler must not be nil.
func NewListener(addr string, h Handler, opts *Options) *Listener {
	if opts == nil {
		opts = &Options{}
	}

	l := &Listener{
		addr:             addr,
		handler:          h,
		logger:           opts.Logger,
		readBufferSize:   opts.ReadBufferSize,
		readLimit:        opts.ReadLimit,
		handshakeTimeout: opts.HandshakeTimeout,
	}
	if l.logger == nil {
		l.logger = logging.Nop()
	}
	if l.handshakeTimeout <= 0 {
		l.handshakeTimeout = defaultHandshakeTimeout
	}
	return l
}

// Start binds the listening socket and begins accepting in the background.
// It is idempotent; a second Start while running does nothing. A bind
// failure is logged and the process continues without a listening socket.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		l.logger.Error("failed to bind", slog.String("addr", l.addr), slog.Any("err", err))
		return
	}
	l.ln = ln
	l.started = true

	l.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	go l.acceptLoop(ln)
}

// Stop closes the listening socket if currently started. It is idempotent.
// Established connections are not affected.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}
	l.started = false
	l.ln.Close()
	l.ln = nil
}

// Addr returns the bound address, or nil if the listener is not started.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop(ln net.Listener) {
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// Normal teardown via Stop.
				return
			}
			l.logger.Warn("accept failed", slog.Any("err", err))
			continue
		}

		// Upgrade off the accept goroutine so one slow or bad client can
		// never block subsequent accepts.
		go l.upgrade(netConn)
	}
}

// upgrade drives one accepted socket through the handshake. On success the
// socket is wrapped into a Conn, the Handler is notified and the read loop
// starts. On failure a 400 is written and the socket closed.
func (l *Listener) upgrade(netConn net.Conn) {
	netConn.SetReadDeadline(time.Now().Add(l.handshakeTimeout))

	req := make([]byte, defaultReadBufferSize)
	n, err := netConn.Read(req)
	if err != nil {
		l.logger.Debug("handshake read failed", slog.Any("err", err))
		netConn.Close()
		return
	}

	resp, err := negotiate(req[:n])
	if err != nil {
		l.logger.Debug("rejecting handshake",
			slog.String("remote", netConn.RemoteAddr().String()), slog.Any("err", err))
		netConn.Write(responseBadRequest)
		netConn.Close()
		return
	}
	if !hasUpgradeTokens(req[:n]) {
		l.logger.Warn("upgrade request without Connection/Upgrade tokens",
			slog.String("remote", netConn.RemoteAddr().String()))
	}

	if _, err := netConn.Write(resp); err != nil {
		l.logger.Debug("handshake write failed", slog.Any("err", err))
		netConn.Close()
		return
	}
	netConn.SetReadDeadline(time.Time{})

	c := newConn(connConfig{
		rwc:       netConn,
		handler:   l.handler,
		logger:    l.logger,
		bufSize:   l.readBufferSize,
		readLimit: l.readLimit,
	})

	l.logger.Info("client connected",
		slog.String("conn", c.id), slog.String("remote", netConn.RemoteAddr().String()))
	l.handler.ClientConnected(c)

	go c.readLoop()
}
