package wire

import (
	"crypto/tls"
	"log/slog"

	pgerror "pgwire/errors"
)

// TLSMode selects whether the connection is upgraded to TLS after the
// initial SSLRequest negotiation.
type TLSMode int

const (
	// TLSDisable never attempts to negotiate TLS.
	TLSDisable TLSMode = iota
	// TLSRequired sends an SSLRequest before startup. The connection fails if
	// the server declines, and also if it accepts, since no TLS handshake is
	// performed (see negotiateTLS).
	TLSRequired
)

// Config carries the settings consumed by Dial: host, port, user, database,
// password, and TLS mode. Connection configuration/settings loading beyond
// this struct (e.g. parsing a DSN or a service file) is an external
// collaborator's concern, out of scope for the core.
type Config struct {
	Host     string
	Port     uint16
	Database string
	Username string
	Password string
	TLSMode  TLSMode
	TLS      *tls.Config
}

// Option configures a Conn during Dial, mirroring the reference's
// OptionFn/NewServer(...options) shape.
type Option func(*Conn)

// WithLogger overrides the default (slog.Default()) logger used for
// connection state-transition logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithStatementStorage overrides the default MapStatementStorage.
func WithStatementStorage(storage StatementStorage) Option {
	return func(c *Conn) {
		c.Statements = storage
	}
}

// WithNoticeHandler registers a callback invoked for every NoticeResponse
// the receiver observes. It defaults to a no-op.
func WithNoticeHandler(fn func(notice *pgerror.Notice)) Option {
	return func(c *Conn) {
		c.noticeHandler = fn
	}
}
