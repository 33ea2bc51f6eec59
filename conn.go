package wire

import (
	"context"
	"log/slog"
	"sync"

	pgerror "pgwire/errors"
	"pgwire/pkg/buffer"

	"github.com/jackc/pgx/v5/pgtype"
)

type ctxKey int

const (
	ctxTypeMap ctxKey = iota
)

// setTypeMap attaches a pgtype.Map to the given context.
func setTypeMap(ctx context.Context, m *pgtype.Map) context.Context {
	return context.WithValue(ctx, ctxTypeMap, m)
}

// TypeMap returns the pgtype.Map attached to the given context, if any. It is
// an optional value-codec hook: the core itself treats parameter and column
// values as opaque []byte, but a caller with richer type knowledge can use
// the map to format parameters or decode columns.
func TypeMap(ctx context.Context) *pgtype.Map {
	val := ctx.Value(ctxTypeMap)
	if val == nil {
		return nil
	}

	return val.(*pgtype.Map)
}

// CancelKey is the {pid, key} pair captured off BackendKeyData during
// startup. Sending the cancel request itself is out of scope for this
// driver, but the data is retained since withholding it would be a pure
// regression relative to what the wire protocol already handed us.
type CancelKey struct {
	ProcessID int32
	SecretKey int32
}

// ConnectionParameters holds the server-reported parameters collected via
// ParameterStatus messages, during startup and from mid-session reports.
type ConnectionParameters struct {
	ServerVersionMajor  int
	ServerVersionMinor  int
	ServerVersionPatch  int
	ServerVersionSuffix string
	ServerEncoding      string
	IntegerDatetimes    bool

	raw map[string]string
}

// Raw returns the complete set of ParameterStatus key/value pairs collected
// during startup and since (mid-session reports), including ones without a
// dedicated field above.
func (p ConnectionParameters) Raw() map[string]string {
	return p.raw
}

// notificationRingSize bounds the Notifications() ring buffer.
const notificationRingSize = 64

// Notification is a LISTEN/NOTIFY payload delivered out of band by the
// server. Sending LISTEN/NOTIFY themselves is an ordinary SimpleQuery; this
// type only describes the asynchronous delivery.
type Notification struct {
	ProcessID int32
	Channel   string
	Payload   string
}

// Conn is a single PostgreSQL wire-protocol connection. It owns the
// transport, the receiver goroutine, the two outbound queues, a
// StatementStorage handle, and the negotiated ConnectionParameters.
//
// The receiver goroutine owns the transport's read side exclusively; API
// callers own the write side exclusively through send, which is guarded by
// sendMu so concurrent callers on the same Conn don't interleave bytes.
type Conn struct {
	transport Transport
	writer    *buffer.Writer
	logger    *slog.Logger
	sendMu    sync.Mutex

	Statements StatementStorage
	Parameters ConnectionParameters
	paramMu    sync.Mutex
	cancelKey  CancelKey

	dataQ chan dataEnvelope
	allQ  chan controlEnvelope

	noticeHandler func(notice *pgerror.Notice)

	notifyMu sync.Mutex
	notifies []Notification

	closeOnce sync.Once
}

// send serializes one already-encoded client message onto the wire. It is
// the only path API callers use to write, guarded by sendMu so concurrent
// callers on the same Conn don't interleave bytes.
func (c *Conn) send(encode func(*buffer.Writer) error) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := encode(c.writer); err != nil {
		return NewTransportError(err)
	}

	return nil
}

// Close closes the transport, unblocking any in-flight Recv in the receiver
// goroutine, which then closes dataQ/allQ after delivering a final
// ErrConnectionClosed sentinel on each.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		err = c.transport.Close()
	})

	return err
}

// CancelKey returns the pid/secret pair captured off BackendKeyData during
// startup.
func (c *Conn) CancelKey() CancelKey {
	return c.cancelKey
}

// Notifications drains and returns any NotificationResponse payloads the
// receiver has accumulated since the last call. It never blocks.
func (c *Conn) Notifications() []Notification {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	out := c.notifies
	c.notifies = nil
	return out
}

// updateParameterStatus applies a mid-session ParameterStatus report (e.g.
// the server reporting a SET client_encoding/TimeZone/application_name) to
// Parameters.
func (c *Conn) updateParameterStatus(key, value string) {
	c.paramMu.Lock()
	defer c.paramMu.Unlock()

	raw := make(map[string]string, len(c.Parameters.raw)+1)
	for k, v := range c.Parameters.raw {
		raw[k] = v
	}
	raw[key] = value

	c.Parameters = buildConnectionParameters(raw)
}

func (c *Conn) recordNotification(n Notification) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.notifies = append(c.notifies, n)
	if len(c.notifies) > notificationRingSize {
		c.notifies = c.notifies[len(c.notifies)-notificationRingSize:]
	}
}
