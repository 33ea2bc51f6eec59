package wire

import (
	"bytes"
	"testing"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func TestBind_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	msg := Bind{
		Portal:      "p1",
		Statement:   "stmt1",
		ParamFormat: BinaryFormat,
		Params: []Parameter{
			NewParameter(BinaryFormat, []byte{0x00, 0x00, 0x00, 0x2a}),
			NewParameter(BinaryFormat, nil),
		},
		ResultFormat: TextFormat,
	}
	require.NoError(t, msg.Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientBind, msgType)

	portal, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "p1", portal)

	statement, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "stmt1", statement)

	// Always a single, compact format code for the parameter formats.
	paramFormatCount, err := reader.GetInt16()
	require.NoError(t, err)
	require.EqualValues(t, 1, paramFormatCount)

	paramFormat, err := reader.GetInt16()
	require.NoError(t, err)
	require.EqualValues(t, BinaryFormat, paramFormat)

	paramCount, err := reader.GetInt16()
	require.NoError(t, err)
	require.EqualValues(t, 2, paramCount)

	length, err := reader.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, 4, length)

	value, err := reader.GetBytes(int(length))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x2a}, value)

	nullLength, err := reader.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, -1, nullLength)

	// Always a single, compact format code for the result format.
	resultFormatCount, err := reader.GetInt16()
	require.NoError(t, err)
	require.EqualValues(t, 1, resultFormatCount)

	resultFormat, err := reader.GetInt16()
	require.NoError(t, err)
	require.EqualValues(t, TextFormat, resultFormat)

	require.Zero(t, reader.Remaining())
}
