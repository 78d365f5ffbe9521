package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	pkt, err := (&Envelope{Syscall: &Syscall{
		Seq:    7,
		Op:     OpCommand,
		Driver: 0x90001,
		Arg0:   200,
		Arg1:   64,
	}}).Encode()
	require.NoError(t, err)

	env, err := DecodeEnvelope(pkt)
	require.NoError(t, err)
	require.NotNil(t, env.Syscall)
	require.Equal(t, uint32(7), env.Syscall.Seq)
	require.Equal(t, uint32(0x90001), env.Syscall.Driver)
	require.Equal(t, uint32(200), env.Syscall.Arg0)
}

func TestEnvelopeNegativeError(t *testing.T) {
	pkt, err := (&Envelope{Return: &SyscallReturn{Seq: 1, Error: -11}}).Encode()
	require.NoError(t, err)
	env, err := DecodeEnvelope(pkt)
	require.NoError(t, err)
	require.Equal(t, int32(-11), env.Return.Error)
}

func TestDecodeBadFrame(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	require.Equal(t, ErrBadFrame, err)
	_, err = DecodeEnvelope([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}
