package wire

import (
	"testing"

	pgerror "pgwire/errors"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func TestWithLogger(t *testing.T) {
	t.Parallel()

	logger := slogt.New(t)
	conn := &Conn{}
	WithLogger(logger)(conn)
	require.Same(t, logger, conn.logger)
}

func TestWithStatementStorage(t *testing.T) {
	t.Parallel()

	storage := NewMapStatementStorage()
	conn := &Conn{}
	WithStatementStorage(storage)(conn)
	require.Same(t, storage, conn.Statements)
}

func TestWithNoticeHandler(t *testing.T) {
	t.Parallel()

	var got *pgerror.Notice
	fn := func(notice *pgerror.Notice) { got = notice }

	conn := &Conn{}
	WithNoticeHandler(fn)(conn)
	require.NotNil(t, conn.noticeHandler)

	notice := &pgerror.Notice{}
	conn.noticeHandler(notice)
	require.Same(t, notice, got)
}
