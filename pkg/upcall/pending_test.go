package upcall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/drv.go/pkg/kernel"
)

// scriptYielder runs one scripted step per Yield, emulating upcall
// delivery at yield points.
type scriptYielder struct {
	t     *testing.T
	steps []func()
	pos   int
}

func (y *scriptYielder) Yield() {
	require.Less(y.t, y.pos, len(y.steps), "yielded past script end")
	step := y.steps[y.pos]
	y.pos++
	step()
}

func (y *scriptYielder) YieldTimeout(d time.Duration) bool {
	if y.pos >= len(y.steps) {
		time.Sleep(d)
		return false
	}
	y.Yield()
	return true
}

func TestWaitUntilDone(t *testing.T) {
	p := NewPending()
	y := &scriptYielder{t: t, steps: []func(){
		func() {}, // spurious wakeup, nothing delivered
		func() { p.Upcall(kernel.StatusSuccess, 11, 22) },
	}}
	Wait(y, p)
	require.True(t, p.Done())
	require.NoError(t, p.Err())
	require.Equal(t, uint32(11), p.Arg1())
	require.Equal(t, uint32(22), p.Arg2())
	require.Equal(t, 2, y.pos)
}

func TestWaitDecodesFailure(t *testing.T) {
	p := NewPending()
	y := &scriptYielder{t: t, steps: []func(){
		func() { p.Upcall(kernel.StatusInvalid, 0, 0) },
	}}
	Wait(y, p)
	require.Equal(t, error(kernel.ErrInvalid), p.Err())
}

func TestDefaultsSurviveUntilUpcall(t *testing.T) {
	p := NewPending()
	p.SetDefaults(0xffffffff, 5)
	require.False(t, p.Done())
	require.Equal(t, uint32(0xffffffff), p.Arg1())
	require.Equal(t, uint32(5), p.Arg2())
}

func TestWaitTimeoutExpiry(t *testing.T) {
	p := NewPending()
	y := &scriptYielder{t: t}
	err := WaitTimeout(y, p, 10*time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	require.False(t, p.Done())

	// a late upcall still completes the request
	p.Upcall(kernel.StatusSuccess, 1, 2)
	require.True(t, p.Done())
	require.NoError(t, WaitTimeout(y, p, time.Millisecond))
}
