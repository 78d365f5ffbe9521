package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/upcall"
)

// fakeTransport scripts transport acceptance and upcall delivery for
// one driver/slot pair.
type fakeTransport struct {
	subErr   kernel.ErrorCode
	cmdErr   kernel.ErrorCode
	allowErr kernel.ErrorCode

	// completion queued by Command when complete is set, delivered at
	// the next yield
	complete *completion

	up      kernel.Upcall
	queued  *completion
	calls   []string
	allowed []byte
}

type completion struct {
	status kernel.Status
	arg1   uint32
	arg2   uint32
}

func (f *fakeTransport) Command(driver, opcode, arg1, arg2 uint32) kernel.CommandReturn {
	f.calls = append(f.calls, "command")
	if f.cmdErr != 0 {
		return kernel.CommandErr(f.cmdErr)
	}
	f.queued = f.complete
	return kernel.CommandReturn{}
}

func (f *fakeTransport) Subscribe(driver, slot uint32, up kernel.Upcall) kernel.SubscribeReturn {
	f.calls = append(f.calls, "subscribe")
	if f.subErr != 0 {
		return kernel.SubscribeErr(f.subErr)
	}
	f.up = up
	return kernel.SubscribeReturn{}
}

func (f *fakeTransport) AllowReadOnly(driver, slot uint32, buf []byte) kernel.AllowReturn {
	f.calls = append(f.calls, "allow-ro")
	if f.allowErr != 0 {
		return kernel.AllowErr(f.allowErr)
	}
	f.allowed = buf
	return kernel.AllowReturn{}
}

func (f *fakeTransport) AllowReadWrite(driver, slot uint32, buf []byte) kernel.AllowReturn {
	f.calls = append(f.calls, "allow-rw")
	if f.allowErr != 0 {
		return kernel.AllowErr(f.allowErr)
	}
	f.allowed = buf
	return kernel.AllowReturn{}
}

func (f *fakeTransport) Yield() {
	f.calls = append(f.calls, "yield")
	if f.queued != nil {
		c := f.queued
		f.queued = nil
		f.up(c.status, c.arg1, c.arg2)
	}
}

func (f *fakeTransport) YieldTimeout(d time.Duration) bool {
	if f.queued == nil {
		return false
	}
	f.Yield()
	return true
}

func TestInvokeSequence(t *testing.T) {
	ft := &fakeTransport{complete: &completion{kernel.StatusSuccess, 3, 4}}
	c := New(ft, 7, 0)
	p := upcall.NewPending()
	require.NoError(t, c.Invoke(1, 0, 0, p))
	require.Equal(t, []string{"subscribe", "command", "yield"}, ft.calls)
	require.Equal(t, uint32(3), p.Arg1())
	require.Equal(t, uint32(4), p.Arg2())
}

func TestInvokeSubscribeRejected(t *testing.T) {
	ft := &fakeTransport{subErr: kernel.ErrBusy}
	c := New(ft, 7, 0)
	err := c.Invoke(1, 0, 0, upcall.NewPending())
	require.Equal(t, error(kernel.ErrBusy), err)
	// nothing after the rejected subscribe
	require.Equal(t, []string{"subscribe"}, ft.calls)
}

func TestInvokeCommandRejected(t *testing.T) {
	ft := &fakeTransport{cmdErr: kernel.ErrNoSupport}
	c := New(ft, 7, 0)
	p := upcall.NewPending()
	p.SetDefaults(0xffffffff, 0)
	err := c.Invoke(1, 0, 0, p)
	require.Equal(t, error(kernel.ErrNoSupport), err)
	// the wait is never entered and defaults survive
	require.Equal(t, []string{"subscribe", "command"}, ft.calls)
	require.Equal(t, uint32(0xffffffff), p.Arg1())

	// the slot is reusable after a rejected command
	ft.cmdErr = 0
	ft.complete = &completion{kernel.StatusSuccess, 0, 0}
	require.NoError(t, c.Invoke(1, 0, 0, upcall.NewPending()))
}

func TestInvokeDriverFailure(t *testing.T) {
	ft := &fakeTransport{complete: &completion{status: kernel.StatusInvalid}}
	c := New(ft, 7, 0)
	err := c.Invoke(1, 0, 0, upcall.NewPending())
	require.Equal(t, error(kernel.ErrInvalid), err)
}

func TestSingleOutstandingRequest(t *testing.T) {
	ft := &fakeTransport{} // never completes
	c := New(ft, 7, 0)
	err := c.InvokeTimeout(1, 0, 0, upcall.NewPending(), 5*time.Millisecond)
	require.Equal(t, upcall.ErrTimeout, err)

	// the slot is still owned by the expired request
	err = c.Invoke(2, 0, 0, upcall.NewPending())
	require.Equal(t, error(kernel.ErrAlready), err)
}
