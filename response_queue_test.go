package wire

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/lib/pq/oid"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// newPipeConn wires a Conn to one end of an in-memory net.Pipe, starts the
// receiver goroutine against it, and continuously drains whatever the Conn
// writes on the other end so Conn.send never blocks on an unread pipe.
func newPipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	logger := slogt.New(t)

	conn := &Conn{
		transport:  &netTransport{client},
		logger:     logger,
		Statements: NewMapStatementStorage(),
		dataQ:      make(chan dataEnvelope, 16),
		allQ:       make(chan controlEnvelope, 16),
	}
	conn.writer = buffer.NewWriter(logger, conn.transport)

	reader := buffer.NewReader(logger, conn.transport, buffer.DefaultBufferSize)
	go conn.receive(reader)
	go io.Copy(io.Discard, server)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return conn, server
}

func rowDescriptionMessage(names ...string) []byte {
	payload := beInt16(int16(len(names)))
	for _, name := range names {
		payload = append(payload, cstr(name)...)
		payload = append(payload, beInt32(0)...)  // table oid
		payload = append(payload, beInt16(0)...)  // column attr
		payload = append(payload, beInt32(23)...) // type oid (int4)
		payload = append(payload, beInt16(4)...)  // type size
		payload = append(payload, beInt32(-1)...) // type modifier
		payload = append(payload, beInt16(0)...)  // format
	}

	return frameMessage(byte(types.ServerRowDescription), payload)
}

func dataRowMessage(columns ...[]byte) []byte {
	payload := beInt16(int16(len(columns)))
	for _, col := range columns {
		if col == nil {
			payload = append(payload, beInt32(-1)...)
			continue
		}

		payload = append(payload, beInt32(int32(len(col)))...)
		payload = append(payload, col...)
	}

	return frameMessage(byte(types.ServerDataRow), payload)
}

func commandCompleteMessage(tag string) []byte {
	return frameMessage(byte(types.ServerCommandComplete), cstr(tag))
}

func TestReceive_DataRowsThenCommandComplete(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	go func() {
		server.Write(rowDescriptionMessage("id"))
		server.Write(dataRowMessage([]byte("1")))
		server.Write(dataRowMessage([]byte("2")))
		server.Write(commandCompleteMessage("SELECT 2"))
		server.Write(readyForQueryMessage('I'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := conn.ReadNextData(ctx)
	require.NoError(t, err)
	require.Len(t, data.Rows, 2)
	require.Equal(t, [][]byte{[]byte("1")}, data.Rows[0].Columns)
	require.Equal(t, CommandResult{Tag: "SELECT", RowsAffected: 2}, data.Result)

	require.NoError(t, conn.ReadReadyForQuery(ctx))
}

func TestReceive_EmptyQuery(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	go func() {
		server.Write(frameMessage(byte(types.ServerEmptyQuery), nil))
		server.Write(readyForQueryMessage('I'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := conn.ReadNextData(ctx)
	require.NoError(t, err)
	require.Empty(t, data.Rows)

	require.NoError(t, conn.ReadReadyForQuery(ctx))
}

func TestReceive_ErrorResponseMidStream(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	go func() {
		server.Write(errorResponseMessage("ERROR", "42601", "syntax error"))
		server.Write(readyForQueryMessage('E'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := conn.ReadNextData(ctx)
	require.Error(t, err)
	require.Empty(t, data.Rows)

	var pgErr *PostgresError
	require.ErrorAs(t, err, &pgErr)

	require.ErrorAs(t, conn.ReadReadyForQuery(ctx), &pgErr)
}

func TestReceive_NotificationResponse(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	payload := append(beInt32(7), cstr("channel1")...)
	payload = append(payload, cstr("payload1")...)

	go func() {
		server.Write(frameMessage(byte(types.ServerNotificationResponse), payload))
		server.Write(readyForQueryMessage('I'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, conn.ReadReadyForQuery(ctx))

	notifications := conn.Notifications()
	require.Len(t, notifications, 1)
	require.Equal(t, Notification{ProcessID: 7, Channel: "channel1", Payload: "payload1"}, notifications[0])
}

func TestReceive_TransportClosed(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := conn.ReadNextData(ctx)
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConn_DescribeStatement(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	paramDescription := func() []byte {
		payload := append(beInt16(1), beInt32(int32(oid.T_int4))...)
		return frameMessage(byte(types.ServerParameterDescription), payload)
	}

	go func() {
		server.Write(paramDescription())
		server.Write(rowDescriptionMessage("id"))
		server.Write(readyForQueryMessage('I'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	paramOids, fields, err := conn.DescribeStatement(ctx, "SELECT $1")
	require.NoError(t, err)
	require.Equal(t, []oid.Oid{oid.T_int4}, paramOids)
	require.Len(t, fields, 1)
	require.Equal(t, "id", fields[0].Name)
}

func TestReceive_ParameterStatusMidSession(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)
	conn.Parameters = buildConnectionParameters(map[string]string{"server_version": "15.4"})

	go func() {
		server.Write(frameMessage(byte(types.ServerParameterStatus), append(cstr("client_encoding"), cstr("UTF8")...)))
		server.Write(readyForQueryMessage('I'))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, conn.ReadReadyForQuery(ctx))
	require.Equal(t, "UTF8", conn.Parameters.Raw()["client_encoding"])
	require.Equal(t, 15, conn.Parameters.ServerVersionMajor)
}

func TestReceive_UnknownTagIsFatal(t *testing.T) {
	t.Parallel()

	conn, server := newPipeConn(t)

	go func() {
		server.Write(frameMessage('Y', nil))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := conn.ReadNextData(ctx)
	require.ErrorIs(t, err, ErrConnectionClosed)

	require.ErrorIs(t, conn.ReadReadyForQuery(context.Background()), ErrConnectionClosed)
}

func TestConn_SendBatchAndSync(t *testing.T) {
	t.Parallel()

	conn, _ := newPipeConn(t)

	err := conn.SendBatchAndSync([]BatchQuery{
		{SQL: "SELECT 1"},
	})
	require.NoError(t, err)
}
