package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"pgwire/pkg/buffer"
)

// defaultUnixSocketDir is used when Config.Host is empty.
const defaultUnixSocketDir = "/var/run/postgresql"

// Transport is the byte-oriented send/recv abstraction the codec and
// receiver are built on. Two concrete backends are provided: UNIX-domain
// stream and TCP. Because Transport additionally satisfies io.Reader/
// io.Writer, a future TLS wrapper can slot in via crypto/tls.Client without
// touching the codec or receiver, the same slot-in shape the reference uses
// server-side (tls.Server(conn, srv.TLSConfig)).
type Transport interface {
	io.Reader
	io.Writer
	Flush() error
	Close() error
}

type netTransport struct {
	net.Conn
}

func (t *netTransport) Flush() error { return nil }

// dialTransport resolves the endpoint per Config and opens the underlying
// socket. The host is treated as a UNIX socket directory when empty or when
// it begins with "/"; otherwise it is resolved as a TCP host.
func dialTransport(ctx context.Context, cfg Config) (Transport, error) {
	var dialer net.Dialer

	if cfg.Host == "" || strings.HasPrefix(cfg.Host, "/") {
		dir := cfg.Host
		if dir == "" {
			dir = defaultUnixSocketDir
		}

		dir = strings.TrimRight(dir, "/")
		path := fmt.Sprintf("%s/.s.PGSQL.%d", dir, cfg.Port)

		conn, err := dialer.DialContext(ctx, "unix", path)
		if err != nil {
			return nil, NewTransportError(err)
		}

		return &netTransport{conn}, nil
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewTransportError(err)
	}

	return &netTransport{conn}, nil
}

// Dial opens a new PostgreSQL wire-protocol connection using the given
// configuration and options, performs the startup handshake and
// authentication, and starts the receiver goroutine. The returned Conn is
// ready to accept Request API calls.
func Dial(ctx context.Context, cfg Config, options ...Option) (*Conn, error) {
	transport, err := dialTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.TLSMode == TLSRequired {
		transport, err = negotiateTLS(transport, cfg)
		if err != nil {
			transport.Close()
			return nil, err
		}
	}

	conn := &Conn{
		transport:  transport,
		logger:     slog.Default(),
		Statements: NewMapStatementStorage(),
		dataQ:      make(chan dataEnvelope, 16),
		allQ:       make(chan controlEnvelope, 16),
	}

	for _, option := range options {
		option(conn)
	}

	conn.writer = buffer.NewWriter(conn.logger, transport)
	reader := buffer.NewReader(conn.logger, transport, buffer.DefaultBufferSize)

	if err := connect(ctx, conn, reader, cfg); err != nil {
		transport.Close()
		return nil, err
	}

	go conn.receive(reader)

	return conn, nil
}
