package wire

import (
	"pgwire/pkg/buffer"
	"pgwire/pkg/types"
)

// The COPY sub-protocol message shapes are defined as decodable server
// messages (and CopyData/CopyDone/CopyFail as encodable client messages) so
// that a caller which issues a COPY statement via SimpleQuery does not get a
// DecodeError on the reply. The streaming state machine around COPY
// (switching the connection into a raw byte-relay mode) is out of scope;
// this driver surfaces the shape, not the flow.

// CopyInResponse is sent by the server to initiate a CopyIn sequence.
type CopyInResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}

// CopyOutResponse is sent by the server to initiate a CopyOut sequence.
type CopyOutResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}

// CopyData carries a single chunk of COPY data, in either direction.
type CopyData struct {
	Bytes []byte
}

// CopyDone signals the end of a COPY data stream, in either direction.
type CopyDone struct{}

// CopyFail is sent by the client to abort a CopyIn operation in progress.
type CopyFail struct {
	Message string
}

func readCopyResponse(reader *buffer.Reader) (FormatCode, []FormatCode, error) {
	format, err := reader.GetByte()
	if err != nil {
		return 0, nil, err
	}

	count, err := reader.GetInt16()
	if err != nil {
		return 0, nil, err
	}

	formats := make([]FormatCode, count)
	for i := range formats {
		raw, err := reader.GetInt16()
		if err != nil {
			return 0, nil, err
		}

		formats[i] = FormatCode(raw)
	}

	return FormatCode(format), formats, nil
}

// ReadCopyInResponse decodes a CopyInResponse payload.
func ReadCopyInResponse(reader *buffer.Reader) (CopyInResponse, error) {
	format, formats, err := readCopyResponse(reader)
	return CopyInResponse{Format: format, ColumnFormats: formats}, err
}

// ReadCopyOutResponse decodes a CopyOutResponse payload.
func ReadCopyOutResponse(reader *buffer.Reader) (CopyOutResponse, error) {
	format, formats, err := readCopyResponse(reader)
	return CopyOutResponse{Format: format, ColumnFormats: formats}, err
}

// ReadCopyData decodes a CopyData payload: the remainder of the message is
// the raw copied bytes.
func ReadCopyData(reader *buffer.Reader) (CopyData, error) {
	raw, err := reader.GetBytes(reader.Remaining())
	return CopyData{Bytes: raw}, err
}

// Encode writes a CopyData message to the wire.
func (m CopyData) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientCopyData)
	writer.AddBytes(m.Bytes)
	return writer.End()
}

// Encode writes a CopyDone message to the wire.
func (m CopyDone) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientCopyDone)
	return writer.End()
}

// Encode writes a CopyFail message to the wire.
func (m CopyFail) Encode(writer *buffer.Writer) error {
	writer.Start(types.ClientCopyFail)
	writer.AddString(m.Message)
	writer.AddNullTerminate()
	return writer.End()
}
