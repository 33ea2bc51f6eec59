package wire

import (
	"bytes"
	"testing"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func TestExecute_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (Execute{Portal: "p1", MaxRows: 10}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientExecute, msgType)

	portal, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "p1", portal)

	maxRows, err := reader.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, 10, maxRows)
}

func TestFlushSyncTerminate_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encode  func(*buffer.Writer) error
		wantTag types.ClientMessage
	}{
		{"Flush", (Flush{}).Encode, types.ClientFlush},
		{"Sync", (Sync{}).Encode, types.ClientSync},
		{"Terminate", (Terminate{}).Encode, types.ClientTerminate},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := &bytes.Buffer{}
			writer := buffer.NewWriter(slogt.New(t), sink)
			require.NoError(t, test.encode(writer))

			reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
			msgType, length, err := reader.ReadTypedMsg()
			require.NoError(t, err)
			require.EqualValues(t, test.wantTag, msgType)
			require.Zero(t, reader.Remaining())
			require.Greater(t, length, 0)
		})
	}
}

func TestSimpleQuery_Encode(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, (SimpleQuery{SQL: "SELECT 1"}).Encode(writer))

	reader := buffer.NewReader(slogt.New(t), bytes.NewReader(sink.Bytes()), buffer.DefaultBufferSize)
	msgType, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.EqualValues(t, types.ClientSimpleQuery, msgType)

	sql, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", sql)
}
