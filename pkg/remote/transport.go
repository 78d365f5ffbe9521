package remote

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/drv.go/pkg/framework"
	"github.com/robotalks/drv.go/pkg/kernel"
)

// ErrDisconnected indicates the peer kernel went away.
var ErrDisconnected = errors.New("kernel disconnected")

type slotKey struct {
	driver uint32
	slot   uint32
}

// Transport implements kernel.Transport against a remote kernel behind
// a PacketReadWriter. Run must be started before issuing syscalls.
//
// Grant coherence: read-only grants are re-synced to the peer before
// every command; read-write grants sync back from the snapshot attached
// to each upcall event.
type Transport struct {
	rw PacketReadWriter

	seq      uint32
	replyCh  chan *SyscallReturn
	doneCh   chan struct{}
	sendLock sync.Mutex

	subs     map[slotKey]kernel.Upcall
	roGrants map[slotKey][]byte
	rwGrants map[slotKey][]byte

	queue  []*UpcallEvent
	lock   sync.Mutex
	wakeCh chan struct{}
	closed bool
}

// New creates a Transport over a packet pipe.
func New(rw PacketReadWriter) *Transport {
	return &Transport{
		rw:       rw,
		replyCh:  make(chan *SyscallReturn, 1),
		doneCh:   make(chan struct{}),
		subs:     make(map[slotKey]kernel.Upcall),
		roGrants: make(map[slotKey][]byte),
		rwGrants: make(map[slotKey][]byte),
		wakeCh:   make(chan struct{}, 1),
	}
}

// Run implements Runnable: it pumps frames from the peer. When the pump
// stops, every registered subscription receives one synthetic cancel
// upcall so blocked waiters unwind with kernel.ErrCancel.
func (t *Transport) Run(ctx context.Context) error {
	defer t.shutdown()
	return fx.RunWithContextCloser(ctx, t, t.pump)
}

// Close closes the underlying pipe when it supports closing.
func (t *Transport) Close() error {
	if closer, ok := t.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (t *Transport) pump() error {
	for {
		pkt, err := t.rw.ReadPacket()
		if err != nil {
			return err
		}
		env, err := DecodeEnvelope(pkt)
		if err != nil {
			glog.Errorf("remote: %v", err)
			continue
		}
		switch {
		case env.Return != nil:
			select {
			case t.replyCh <- env.Return:
			default:
				glog.Warningf("remote: dropped reply seq=%d", env.Return.Seq)
			}
		case env.Upcall != nil:
			t.enqueue(env.Upcall)
		}
	}
}

func (t *Transport) enqueue(ev *UpcallEvent) {
	t.lock.Lock()
	if buf := t.rwGrants[slotKey{ev.Driver, ev.Slot}]; buf != nil && ev.Data != nil {
		copy(buf, ev.Data)
	}
	t.queue = append(t.queue, ev)
	t.lock.Unlock()
	t.wake()
}

func (t *Transport) wake() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

func (t *Transport) shutdown() {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return
	}
	t.closed = true
	for key := range t.subs {
		t.queue = append(t.queue, &UpcallEvent{
			Driver: key.driver,
			Slot:   key.slot,
			Status: uint32(kernel.StatusCancel),
		})
	}
	t.lock.Unlock()
	close(t.doneCh)
	t.wake()
}

func (t *Transport) call(sc *Syscall) (*SyscallReturn, error) {
	t.seq++
	if t.seq == 0 {
		t.seq++
	}
	sc.Seq = t.seq
	pkt, err := (&Envelope{Syscall: sc}).Encode()
	if err != nil {
		return nil, err
	}
	t.sendLock.Lock()
	err = t.rw.WritePacket(pkt)
	t.sendLock.Unlock()
	if err != nil {
		return nil, err
	}
	for {
		select {
		case ret := <-t.replyCh:
			if ret.Seq != sc.Seq {
				glog.Warningf("remote: stale reply seq=%d", ret.Seq)
				continue
			}
			return ret, nil
		case <-t.doneCh:
			return nil, ErrDisconnected
		}
	}
}

// Command implements kernel.Transport.
func (t *Transport) Command(driver, opcode, arg1, arg2 uint32) kernel.CommandReturn {
	if err := t.syncGrants(driver); err != nil {
		return kernel.CommandErr(kernel.ErrNoAck)
	}
	ret, err := t.call(&Syscall{Op: OpCommand, Driver: driver, Arg0: opcode, Arg1: arg1, Arg2: arg2})
	if err != nil {
		return kernel.CommandErr(kernel.ErrNoAck)
	}
	if ret.Error != 0 {
		return kernel.CommandErr(kernel.ErrorCode(ret.Error))
	}
	return kernel.CommandOK(ret.V1, ret.V2)
}

// Subscribe implements kernel.Transport.
func (t *Transport) Subscribe(driver, slot uint32, up kernel.Upcall) kernel.SubscribeReturn {
	key := slotKey{driver, slot}
	sc := &Syscall{Op: OpSubscribe, Driver: driver, Arg0: slot}
	if up != nil {
		sc.Arg1 = 1
	}
	ret, err := t.call(sc)
	if err != nil {
		return kernel.SubscribeErr(kernel.ErrNoAck)
	}
	if ret.Error != 0 {
		return kernel.SubscribeErr(kernel.ErrorCode(ret.Error))
	}
	t.lock.Lock()
	if up == nil {
		delete(t.subs, key)
	} else {
		t.subs[key] = up
	}
	t.lock.Unlock()
	return kernel.SubscribeReturn{}
}

// AllowReadOnly implements kernel.Transport.
func (t *Transport) AllowReadOnly(driver, slot uint32, buf []byte) kernel.AllowReturn {
	return t.allow(OpAllowRO, t.roGrants, driver, slot, buf)
}

// AllowReadWrite implements kernel.Transport.
func (t *Transport) AllowReadWrite(driver, slot uint32, buf []byte) kernel.AllowReturn {
	return t.allow(OpAllowRW, t.rwGrants, driver, slot, buf)
}

func (t *Transport) allow(op uint32, table map[slotKey][]byte, driver, slot uint32, buf []byte) kernel.AllowReturn {
	ret, err := t.call(&Syscall{Op: op, Driver: driver, Arg0: slot, Data: buf})
	if err != nil {
		return kernel.AllowErr(kernel.ErrNoAck)
	}
	if ret.Error != 0 {
		return kernel.AllowErr(kernel.ErrorCode(ret.Error))
	}
	key := slotKey{driver, slot}
	t.lock.Lock()
	if len(buf) == 0 {
		delete(table, key)
	} else {
		table[key] = buf
	}
	t.lock.Unlock()
	return kernel.AllowReturn{}
}

// syncGrants pushes the current bytes of every read-only grant for
// driver to the peer. The peer kernel has no view of the caller's
// memory, so the grant content travels just before each command.
func (t *Transport) syncGrants(driver uint32) error {
	t.lock.Lock()
	var keys []slotKey
	for key := range t.roGrants {
		if key.driver == driver {
			keys = append(keys, key)
		}
	}
	t.lock.Unlock()
	for _, key := range keys {
		t.lock.Lock()
		buf := t.roGrants[key]
		t.lock.Unlock()
		ret, err := t.call(&Syscall{Op: OpAllowRO, Driver: key.driver, Arg0: key.slot, Data: buf})
		if err != nil {
			return err
		}
		if ret.Error != 0 {
			return kernel.ErrorCode(ret.Error)
		}
	}
	return nil
}

// Yield implements kernel.Yielder.
func (t *Transport) Yield() {
	for !t.deliver() {
		select {
		case <-t.wakeCh:
		case <-t.doneCh:
			if !t.deliver() {
				return
			}
			return
		}
	}
}

// YieldTimeout implements kernel.Yielder.
func (t *Transport) YieldTimeout(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for !t.deliver() {
		remain := time.Until(deadline)
		if remain <= 0 {
			return false
		}
		select {
		case <-t.wakeCh:
		case <-t.doneCh:
			return t.deliver()
		case <-time.After(remain):
			return false
		}
	}
	return true
}

func (t *Transport) deliver() bool {
	t.lock.Lock()
	pending := t.queue
	t.queue = nil
	t.lock.Unlock()

	delivered := false
	for _, ev := range pending {
		t.lock.Lock()
		up := t.subs[slotKey{ev.Driver, ev.Slot}]
		t.lock.Unlock()
		if up == nil {
			glog.V(4).Infof("remote: dropped upcall driver=%#x slot=%d", ev.Driver, ev.Slot)
			continue
		}
		up(kernel.Status(ev.Status), ev.Arg1, ev.Arg2)
		delivered = true
	}
	return delivered
}
