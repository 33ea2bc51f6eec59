package wire

import (
	"context"
	"errors"
	"log/slog"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/lib/pq/oid"
)

// ErrConnectionClosed is the sentinel value delivered on dataQ/allQ once, just
// before each channel is closed, whenever the receiver goroutine exits due to
// a transport or decode failure (or an explicit Close). Consumers always
// receive an explicit, distinguishable value rather than observing a
// closed-channel zero value.
var ErrConnectionClosed = errors.New("pgwire: connection closed")

// DataMessage groups all DataRows produced by one Execute, in receipt order,
// terminated by CommandComplete or EmptyQueryResponse.
type DataMessage struct {
	Rows   []DataRow
	Result CommandResult
}

// dataEnvelope is the sum-typed entry carried on dataQ: either a completed
// DataMessage or a terminal error (a PostgresError from the server, or
// ErrConnectionClosed).
type dataEnvelope struct {
	message DataMessage
	err     error
}

type controlKind int

const (
	ctrlParameterDescription controlKind = iota
	ctrlRowDescription
	ctrlReadyForQuery
	ctrlNoData
	ctrlError
)

// controlEnvelope is the sum-typed entry carried on allQ: the filtered
// control-plane messages a Request API call needs to correlate barriers
// (ReadyForQuery) and describe-results (ParameterDescription/RowDescription/
// NoData), plus ErrorResponse (which is also mirrored here so
// ReadReadyForQuery can report it).
type controlEnvelope struct {
	kind      controlKind
	paramOids []oid.Oid
	fields    FieldDescriptions
	status    types.TransactionStatus
	err       error
}

// receive is the receiver goroutine: it owns the transport's read side and
// the streaming decoder exclusively, decodes one ServerMessage at a time,
// and routes it onto dataQ/allQ per the dispatch/filter rules. Decode or
// transport failures are fatal to the connection.
func (c *Conn) receive(reader *buffer.Reader) {
	var accumulator []DataRow

	fail := func(err error) {
		c.dataQ <- dataEnvelope{err: ErrConnectionClosed}
		c.allQ <- controlEnvelope{kind: ctrlError, err: ErrConnectionClosed}
		close(c.dataQ)
		close(c.allQ)
		c.logger.Debug("receiver exiting", slog.Any("cause", err))
	}

	for {
		t, _, err := reader.ReadTypedMsg()
		if err != nil {
			fail(NewTransportError(err))
			return
		}

		switch t {
		case types.ServerDataRow:
			row, err := ReadDataRow(reader)
			if err != nil {
				fail(err)
				return
			}

			accumulator = append(accumulator, row)

		case types.ServerCommandComplete:
			tag, err := reader.GetString()
			if err != nil {
				fail(err)
				return
			}

			result, err := ParseCommandComplete(tag)
			if err != nil {
				fail(err)
				return
			}

			c.dataQ <- dataEnvelope{message: DataMessage{Rows: accumulator, Result: result}}
			accumulator = nil

		case types.ServerEmptyQuery:
			c.dataQ <- dataEnvelope{message: DataMessage{Rows: accumulator}}
			accumulator = nil

		case types.ServerErrorResponse:
			desc, err := ReadErrorResponse(reader)
			if err != nil {
				fail(err)
				return
			}

			pgErr := &PostgresError{Fields: desc.Fields}
			wrapped := decorateFields(pgErr, desc.Fields)
			c.dataQ <- dataEnvelope{err: wrapped}
			accumulator = nil
			c.allQ <- controlEnvelope{kind: ctrlError, err: wrapped}

		case types.ServerParameterStatus:
			key, err := reader.GetString()
			if err != nil {
				fail(err)
				return
			}

			value, err := reader.GetString()
			if err != nil {
				fail(err)
				return
			}

			c.updateParameterStatus(key, value)

		case types.ServerNoData:
			c.allQ <- controlEnvelope{kind: ctrlNoData}

		case types.ServerParameterDescription:
			oids, err := ReadParameterDescription(reader)
			if err != nil {
				fail(err)
				return
			}

			c.allQ <- controlEnvelope{kind: ctrlParameterDescription, paramOids: oids}

		case types.ServerRowDescription:
			fields, err := ReadRowDescription(reader)
			if err != nil {
				fail(err)
				return
			}

			c.allQ <- controlEnvelope{kind: ctrlRowDescription, fields: fields}

		case types.ServerReady:
			status, err := ReadTransactionStatus(reader)
			if err != nil {
				fail(err)
				return
			}

			c.allQ <- controlEnvelope{kind: ctrlReadyForQuery, status: status}

		case types.ServerNoticeResponse:
			notice, err := ReadNoticeResponse(reader)
			if err != nil {
				fail(err)
				return
			}

			if c.noticeHandler != nil {
				c.noticeHandler(notice)
			}

		case types.ServerNotificationResponse:
			pid, err := reader.GetInt32()
			if err != nil {
				fail(err)
				return
			}

			channel, err := reader.GetString()
			if err != nil {
				fail(err)
				return
			}

			payload, err := reader.GetString()
			if err != nil {
				fail(err)
				return
			}

			c.recordNotification(Notification{ProcessID: pid, Channel: channel, Payload: payload})

		case types.ServerBindComplete, types.ServerCloseComplete, types.ServerParseComplete,
			types.ServerBackendKeyData, types.ServerPortalSuspended,
			types.ServerCopyInResponse, types.ServerCopyOutResponse,
			types.ServerCopyData, types.ServerCopyDone:
			// Not admitted to allQ (see filter table); the frame has already
			// been fully consumed by ReadTypedMsg, so it is safe to ignore.

		default:
			fail(NewErrUnimplementedMessageType(t))
			return
		}
	}
}

// BatchQuery describes one query bound into a SendBatch call.
type BatchQuery struct {
	SQL          string
	ParamOids    []oid.Oid
	Params       []Parameter
	ParamFormat  FormatCode
	ResultFormat FormatCode
}

// SendBatch emits Parse/Bind/Execute for each query in order, using the
// unnamed statement and portal. No Sync is emitted; call SendSync (or
// SendBatchAndSync) to close the request round.
func (c *Conn) SendBatch(queries []BatchQuery) error {
	for _, q := range queries {
		if err := c.send((Parse{SQL: q.SQL, ParamOids: q.ParamOids}).Encode); err != nil {
			return err
		}

		bind := Bind{
			ParamFormat:  q.ParamFormat,
			Params:       q.Params,
			ResultFormat: q.ResultFormat,
		}
		if err := c.send(bind.Encode); err != nil {
			return err
		}

		if err := c.send((Execute{MaxRows: 0}).Encode); err != nil {
			return err
		}
	}

	return nil
}

// SendSync emits a Sync message.
func (c *Conn) SendSync() error {
	return c.send((Sync{}).Encode)
}

// SendFlush emits a Flush message.
func (c *Conn) SendFlush() error {
	return c.send((Flush{}).Encode)
}

// SendBatchAndSync is a convenience combining SendBatch and SendSync.
func (c *Conn) SendBatchAndSync(queries []BatchQuery) error {
	if err := c.SendBatch(queries); err != nil {
		return err
	}

	return c.SendSync()
}

// ReadNextData dequeues the next DataMessage produced by the receiver,
// blocking until one arrives or the connection is closed.
func (c *Conn) ReadNextData(ctx context.Context) (DataMessage, error) {
	select {
	case env, ok := <-c.dataQ:
		if !ok {
			return DataMessage{}, ErrConnectionClosed
		}

		return env.message, env.err
	case <-ctx.Done():
		return DataMessage{}, ctx.Err()
	}
}

// ReadReadyForQuery drains allQ until a ReadyForQuery is observed, returning
// the first PostgresError seen in the drained prefix, or nil.
func (c *Conn) ReadReadyForQuery(ctx context.Context) error {
	var first error

	for {
		select {
		case env, ok := <-c.allQ:
			if !ok {
				return ErrConnectionClosed
			}

			if env.kind == ctrlError && first == nil {
				first = env.err
			}

			if env.kind == ctrlReadyForQuery {
				return first
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DescribeStatement sends Parse("", sql, []), DescribeStatement(""), Sync,
// and collects the control stream until ReadyForQuery, expecting either
// [ParameterDescription(p), NoData] or [ParameterDescription(p),
// RowDescription(f)]. Otherwise the first error observed is returned.
func (c *Conn) DescribeStatement(ctx context.Context, sql string) ([]oid.Oid, FieldDescriptions, error) {
	if err := c.send((Parse{SQL: sql}).Encode); err != nil {
		return nil, nil, err
	}

	if err := c.send((DescribeStatement{}).Encode); err != nil {
		return nil, nil, err
	}

	if err := c.SendSync(); err != nil {
		return nil, nil, err
	}

	var (
		paramOids []oid.Oid
		fields    FieldDescriptions
		first     error
	)

	for {
		select {
		case env, ok := <-c.allQ:
			if !ok {
				return nil, nil, ErrConnectionClosed
			}

			switch env.kind {
			case ctrlParameterDescription:
				paramOids = env.paramOids
			case ctrlRowDescription:
				fields = env.fields
			case ctrlError:
				if first == nil {
					first = env.err
				}
			case ctrlReadyForQuery:
				if first != nil {
					return nil, nil, first
				}

				return paramOids, fields, nil
			}
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}
