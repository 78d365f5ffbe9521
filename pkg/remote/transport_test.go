package remote

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/drv.go/pkg/driver"
	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/kernel/sim"
	"github.com/robotalks/drv.go/pkg/upcall"
)

// chanPipe is one end of an in-memory packet pipe.
type chanPipe struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipePair() (*chanPipe, *chanPipe) {
	a2b, b2a := make(chan []byte, 16), make(chan []byte, 16)
	a := &chanPipe{in: b2a, out: a2b, closed: make(chan struct{})}
	b := &chanPipe{in: a2b, out: b2a, closed: make(chan struct{})}
	return a, b
}

func (p *chanPipe) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *chanPipe) WritePacket(pkt []byte) error {
	select {
	case p.out <- pkt:
		return nil
	case <-p.closed:
		return errors.New("pipe closed")
	}
}

func (p *chanPipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

type tunnelTestEnv struct {
	t         *testing.T
	kernel    *sim.Kernel
	driver    *sim.ScreenDriver
	transport *Transport
	cancel    func()
}

func newTunnelTestEnv(t *testing.T) *tunnelTestEnv {
	env := &tunnelTestEnv{t: t}
	env.kernel = sim.NewKernel()
	env.driver = sim.DefaultScreenDriver()
	env.kernel.Register(sim.ScreenDriverNum, env.driver)

	serverEnd, clientEnd := newPipePair()
	env.transport = New(clientEnd)

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go NewServer(env.kernel, serverEnd).Run(ctx)
	go env.transport.Run(ctx)
	return env
}

func TestTunnelCommand(t *testing.T) {
	env := newTunnelTestEnv(t)
	defer env.cancel()

	c := driver.New(env.transport, sim.ScreenDriverNum, 0)
	p := upcall.NewPending()
	// resolution query, opcode 23
	require.NoError(t, c.Invoke(23, 0, 0, p))
	require.Equal(t, uint32(160), p.Arg1())
	require.Equal(t, uint32(128), p.Arg2())
}

func TestTunnelCommandRejected(t *testing.T) {
	env := newTunnelTestEnv(t)
	defer env.cancel()

	ret := env.transport.Command(0xbad, 0, 0, 0)
	require.Equal(t, error(kernel.ErrNoDevice), ret.Done())
}

func TestTunnelGrantSync(t *testing.T) {
	env := newTunnelTestEnv(t)
	defer env.cancel()

	c := driver.New(env.transport, sim.ScreenDriverNum, 0)
	require.NoError(t, c.InitBuffer(256, false))
	require.NoError(t, c.SetWord(0, 0xABCD))
	// write 2 bytes, opcode 200: the local buffer content must reach
	// the remote kernel before the command executes
	require.NoError(t, c.Invoke(200, 2, 0, upcall.NewPending()))

	fb := env.driver.Framebuffer()
	require.Equal(t, byte(0xAB), fb[0])
	require.Equal(t, byte(0xCD), fb[1])
}

func TestTunnelSubscribeRevoke(t *testing.T) {
	env := newTunnelTestEnv(t)
	defer env.cancel()

	fired := false
	require.NoError(t, env.transport.Subscribe(sim.ScreenDriverNum, 0,
		func(kernel.Status, uint32, uint32) { fired = true }).Done())
	require.NoError(t, env.transport.Subscribe(sim.ScreenDriverNum, 0, nil).Done())
	// brightness, opcode 3: completes remotely but nothing is
	// registered locally anymore
	require.NoError(t, env.transport.Command(sim.ScreenDriverNum, 3, 1, 0).Done())
	require.False(t, env.transport.YieldTimeout(50*time.Millisecond))
	require.False(t, fired)
}

func TestTunnelDisconnectCancels(t *testing.T) {
	env := newTunnelTestEnv(t)

	// sink driver accepts commands and never completes them
	env.kernel.Register(2, sinkDriver{})
	c := driver.New(env.transport, 2, 0)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Invoke(1, 0, 0, upcall.NewPending())
	}()
	time.Sleep(20 * time.Millisecond)
	env.cancel()
	select {
	case err := <-errCh:
		require.Equal(t, error(kernel.ErrCancel), err)
	case <-time.After(time.Second):
		t.Fatal("blocked wait did not unwind on disconnect")
	}
}

type sinkDriver struct{}

func (sinkDriver) Command(*sim.Process, uint32, uint32, uint32) kernel.CommandReturn {
	return kernel.CommandReturn{}
}
