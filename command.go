package wire

import (
	"strconv"
	"strings"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/lib/pq/oid"
)

// StartupMessage is the first message sent on a new connection. It carries
// no leading type byte: [len: 4 BE][protocol: 4 BE][k\0v\0...\0].
type StartupMessage struct {
	Parameters map[string]string
}

// Encode writes the startup message to the wire.
func (m StartupMessage) Encode(writer *buffer.Writer) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.Version30))

	for key, value := range m.Parameters {
		writer.AddString(key)
		writer.AddNullTerminate()
		writer.AddString(value)
		writer.AddNullTerminate()
	}

	writer.AddNullTerminate()
	return writer.EndUntyped()
}

// PasswordMessage carries a cleartext password, or a salted MD5 digest
// prefixed with "md5", depending on which the server requested.
type PasswordMessage struct {
	Password string
}

func (m PasswordMessage) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientPassword)
	writer.AddString(m.Password)
	writer.AddNullTerminate()
	return writer.End()
}

// SimpleQuery issues a query using the simple query protocol.
type SimpleQuery struct {
	SQL string
}

func (m SimpleQuery) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientSimpleQuery)
	writer.AddString(m.SQL)
	writer.AddNullTerminate()
	return writer.End()
}

// Parse creates a prepared statement from the given SQL text.
type Parse struct {
	Statement string
	SQL       string
	ParamOids []oid.Oid
}

func (m Parse) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientParse)
	writer.AddString(m.Statement)
	writer.AddNullTerminate()
	writer.AddString(m.SQL)
	writer.AddNullTerminate()
	writer.AddInt16(int16(len(m.ParamOids)))

	for _, o := range m.ParamOids {
		writer.AddInt32(int32(o))
	}

	return writer.End()
}

// Bind binds parameter values to a prepared statement, producing a portal.
//
// Decision (redesign flag resolved): the encoder always emits the compact
// single-format-code form (n_param_formats=1) for both the parameter and the
// result format, matching the reference's handling of format codes.
type Bind struct {
	Portal       string
	Statement    string
	ParamFormat  FormatCode
	Params       []Parameter
	ResultFormat FormatCode
}

func (m Bind) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientBind)
	writer.AddString(m.Portal)
	writer.AddNullTerminate()
	writer.AddString(m.Statement)
	writer.AddNullTerminate()

	writer.AddInt16(1)
	writer.AddInt16(int16(m.ParamFormat))

	writer.AddInt16(int16(len(m.Params)))
	for _, param := range m.Params {
		if param.Value() == nil {
			writer.AddInt32(-1)
			continue
		}

		writer.AddInt32(int32(len(param.Value())))
		writer.AddBytes(param.Value())
	}

	writer.AddInt16(1)
	writer.AddInt16(int16(m.ResultFormat))

	return writer.End()
}

// Execute runs the named portal, requesting up to maxRows rows (0 = no limit).
type Execute struct {
	Portal  string
	MaxRows int32
}

func (m Execute) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientExecute)
	writer.AddString(m.Portal)
	writer.AddNullTerminate()
	writer.AddInt32(m.MaxRows)
	return writer.End()
}

// DescribeStatement requests a ParameterDescription + RowDescription (or
// NoData) for the named prepared statement.
type DescribeStatement struct {
	Name string
}

func (m DescribeStatement) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientDescribe)
	writer.AddByte(byte(types.DescribeStatement))
	writer.AddString(m.Name)
	writer.AddNullTerminate()
	return writer.End()
}

// DescribePortal requests a RowDescription (or NoData) for the named portal.
type DescribePortal struct {
	Name string
}

func (m DescribePortal) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientDescribe)
	writer.AddByte(byte(types.DescribePortal))
	writer.AddString(m.Name)
	writer.AddNullTerminate()
	return writer.End()
}

// CloseStatement closes the named prepared statement.
type CloseStatement struct {
	Name string
}

func (m CloseStatement) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientClose)
	writer.AddByte(byte(types.DescribeStatement))
	writer.AddString(m.Name)
	writer.AddNullTerminate()
	return writer.End()
}

// ClosePortal closes the named portal.
type ClosePortal struct {
	Name string
}

func (m ClosePortal) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientClose)
	writer.AddByte(byte(types.DescribePortal))
	writer.AddString(m.Name)
	writer.AddNullTerminate()
	return writer.End()
}

// Flush requests that the backend deliver any data pending in its output
// buffers without closing the current transaction.
type Flush struct{}

func (m Flush) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientFlush)
	return writer.End()
}

// Sync closes the current extended-query cycle and requests a ReadyForQuery.
type Sync struct{}

func (m Sync) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientSync)
	return writer.End()
}

// Terminate politely closes the connection.
type Terminate struct{}

func (m Terminate) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientTerminate)
	return writer.End()
}

// CommandResult is the parsed form of a CommandComplete tag string.
type CommandResult struct {
	Tag          string
	Oid          uint32
	RowsAffected uint64
}

// ParseCommandComplete parses the ASCII command-tag payload of a
// CommandComplete message. The first token selects the variant: INSERT is
// followed by "oid rows", the others ("UPDATE", "DELETE", "SELECT", "MOVE",
// "FETCH", "COPY") by "rows"; unknown tokens yield a bare CommandOk-style
// result (RowsAffected 0).
func ParseCommandComplete(tag string) (CommandResult, error) {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return CommandResult{Tag: tag}, nil
	}

	switch fields[0] {
	case "INSERT":
		if len(fields) != 3 {
			return CommandResult{}, NewDecodeError("malformed INSERT command tag: %q", tag)
		}

		o, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return CommandResult{}, NewDecodeError("malformed INSERT oid in command tag: %q", tag)
		}

		rows, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return CommandResult{}, NewDecodeError("malformed INSERT row count in command tag: %q", tag)
		}

		return CommandResult{Tag: fields[0], Oid: uint32(o), RowsAffected: rows}, nil

	case "UPDATE", "DELETE", "SELECT", "MOVE", "FETCH", "COPY":
		if len(fields) != 2 {
			return CommandResult{}, NewDecodeError("malformed %s command tag: %q", fields[0], tag)
		}

		rows, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return CommandResult{}, NewDecodeError("malformed %s row count in command tag: %q", fields[0], tag)
		}

		return CommandResult{Tag: fields[0], RowsAffected: rows}, nil

	default:
		return CommandResult{Tag: fields[0]}, nil
	}
}

// NewErrUnimplementedMessageType is returned when the server sends a
// ServerMessage tag this driver's decoder does not recognize.
func NewErrUnimplementedMessageType(t types.ServerMessage) error {
	return NewDecodeError("unimplemented server message type: %s (%q)", t, byte(t))
}
