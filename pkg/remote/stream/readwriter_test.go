package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketFraming(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	require.NoError(t, rw.WritePacket(nil))
	require.NoError(t, rw.WritePacket([]byte{0xff}))

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0xff}, pkt)

	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestTruncatedPacket(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	buf.Truncate(buf.Len() - 2)

	_, err := rw.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}
