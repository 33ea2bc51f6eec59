package wire

import (
	"bytes"
	"testing"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func TestDescribeStatement_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (DescribeStatement{Name: "stmt1"}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientDescribe, msgType)

	sub, err := reader.GetByte()
	require.NoError(t, err)
	require.EqualValues(t, types.DescribeStatement, sub)

	name, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "stmt1", name)
}

func TestDescribePortal_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (DescribePortal{Name: "p1"}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientDescribe, msgType)

	sub, err := reader.GetByte()
	require.NoError(t, err)
	require.EqualValues(t, types.DescribePortal, sub)

	name, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "p1", name)
}

func TestCloseStatement_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (CloseStatement{Name: "stmt1"}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientClose, msgType)

	sub, err := reader.GetByte()
	require.NoError(t, err)
	require.EqualValues(t, types.DescribeStatement, sub)
}

func TestClosePortal_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (ClosePortal{Name: "p1"}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientClose, msgType)

	sub, err := reader.GetByte()
	require.NoError(t, err)
	require.EqualValues(t, types.DescribePortal, sub)
}
