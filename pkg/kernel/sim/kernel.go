// Package sim provides an in-process kernel for driving clients without
// hardware. It implements kernel.Transport with faithful cooperative
// semantics: upcalls queue up and run only while the application sits
// inside Yield.
package sim

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/drv.go/pkg/kernel"
)

// Driver is a simulated kernel driver addressed by number.
type Driver interface {
	// Command handles one driver-specific opcode. It must not block;
	// asynchronous completion goes through proc.Schedule.
	Command(proc *Process, opcode, arg1, arg2 uint32) kernel.CommandReturn
}

// Kernel is a simulated kernel hosting registered drivers.
type Kernel struct {
	drivers   map[uint32]*Process
	subs      map[slotKey]kernel.Upcall
	allowedRO map[slotKey][]byte
	allowedRW map[slotKey][]byte

	queue  upcallList
	lock   sync.Mutex
	wakeCh chan struct{}
}

type slotKey struct {
	driver uint32
	slot   uint32
}

type upcallItem struct {
	key    slotKey
	status kernel.Status
	arg1   uint32
	arg2   uint32
	next   *upcallItem
}

type upcallList struct {
	head *upcallItem
	tail *upcallItem
}

func (l *upcallList) append(item *upcallItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *upcallList) splice(src *upcallList) {
	l.head, l.tail, src.head, src.tail = src.head, src.tail, nil, nil
}

// NewKernel creates an empty Kernel.
func NewKernel() *Kernel {
	return &Kernel{
		drivers:   make(map[uint32]*Process),
		subs:      make(map[slotKey]kernel.Upcall),
		allowedRO: make(map[slotKey][]byte),
		allowedRW: make(map[slotKey][]byte),
		wakeCh:    make(chan struct{}, 1),
	}
}

// Register installs a driver under num, replacing any prior driver.
func (k *Kernel) Register(num uint32, d Driver) *Kernel {
	k.lock.Lock()
	k.drivers[num] = &Process{kernel: k, num: num, driver: d}
	k.lock.Unlock()
	return k
}

// Command implements kernel.Transport.
func (k *Kernel) Command(driver, opcode, arg1, arg2 uint32) kernel.CommandReturn {
	k.lock.Lock()
	proc := k.drivers[driver]
	k.lock.Unlock()
	if proc == nil {
		return kernel.CommandErr(kernel.ErrNoDevice)
	}
	glog.V(4).Infof("command driver=%#x opcode=%d args=%d,%d", driver, opcode, arg1, arg2)
	return proc.driver.Command(proc, opcode, arg1, arg2)
}

// Subscribe implements kernel.Transport. A nil upcall revokes the
// registration; a non-nil one replaces whatever was registered.
func (k *Kernel) Subscribe(driver, slot uint32, up kernel.Upcall) kernel.SubscribeReturn {
	k.lock.Lock()
	defer k.lock.Unlock()
	if k.drivers[driver] == nil {
		return kernel.SubscribeErr(kernel.ErrNoDevice)
	}
	key := slotKey{driver, slot}
	if up == nil {
		delete(k.subs, key)
	} else {
		k.subs[key] = up
	}
	return kernel.SubscribeReturn{}
}

// AllowReadOnly implements kernel.Transport. An empty buffer revokes
// the grant.
func (k *Kernel) AllowReadOnly(driver, slot uint32, buf []byte) kernel.AllowReturn {
	return k.allow(k.allowedRO, driver, slot, buf)
}

// AllowReadWrite implements kernel.Transport.
func (k *Kernel) AllowReadWrite(driver, slot uint32, buf []byte) kernel.AllowReturn {
	return k.allow(k.allowedRW, driver, slot, buf)
}

func (k *Kernel) allow(table map[slotKey][]byte, driver, slot uint32, buf []byte) kernel.AllowReturn {
	k.lock.Lock()
	defer k.lock.Unlock()
	if k.drivers[driver] == nil {
		return kernel.AllowErr(kernel.ErrNoDevice)
	}
	key := slotKey{driver, slot}
	if len(buf) == 0 {
		delete(table, key)
	} else {
		table[key] = buf
	}
	return kernel.AllowReturn{}
}

// Yield implements kernel.Yielder. It suspends until at least one
// queued upcall has been delivered.
func (k *Kernel) Yield() {
	for !k.deliver() {
		<-k.wakeCh
	}
}

// YieldTimeout implements kernel.Yielder.
func (k *Kernel) YieldTimeout(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for !k.deliver() {
		remain := time.Until(deadline)
		if remain <= 0 {
			return false
		}
		select {
		case <-k.wakeCh:
		case <-time.After(remain):
			return false
		}
	}
	return true
}

// deliver drains the queue, invoking the upcall currently registered
// for each item's slot. Items whose slot has no registration are
// dropped. Reports whether anything was delivered.
func (k *Kernel) deliver() bool {
	var pending upcallList
	k.lock.Lock()
	pending.splice(&k.queue)
	k.lock.Unlock()

	delivered := false
	for item := pending.head; item != nil; item = item.next {
		k.lock.Lock()
		up := k.subs[item.key]
		k.lock.Unlock()
		if up == nil {
			glog.V(4).Infof("dropped upcall driver=%#x slot=%d", item.key.driver, item.key.slot)
			continue
		}
		up(item.status, item.arg1, item.arg2)
		delivered = true
	}
	return delivered
}

func (k *Kernel) schedule(key slotKey, status kernel.Status, arg1, arg2 uint32) {
	k.lock.Lock()
	k.queue.append(&upcallItem{key: key, status: status, arg1: arg1, arg2: arg2})
	k.lock.Unlock()
	select {
	case k.wakeCh <- struct{}{}:
	default:
	}
}

// Process is a driver's view of the kernel: its allowed buffers and the
// completion queue.
type Process struct {
	kernel *Kernel
	num    uint32
	driver Driver
}

// Schedule queues a completion upcall for slot. It is safe to call from
// any goroutine; delivery happens at the application's next yield.
func (p *Process) Schedule(slot uint32, status kernel.Status, arg1, arg2 uint32) {
	p.kernel.schedule(slotKey{p.num, slot}, status, arg1, arg2)
}

// ReadOnly returns the buffer granted read-only at slot, nil if none.
func (p *Process) ReadOnly(slot uint32) []byte {
	p.kernel.lock.Lock()
	defer p.kernel.lock.Unlock()
	return p.kernel.allowedRO[slotKey{p.num, slot}]
}

// ReadWrite returns the buffer granted read-write at slot, nil if none.
func (p *Process) ReadWrite(slot uint32) []byte {
	p.kernel.lock.Lock()
	defer p.kernel.lock.Unlock()
	return p.kernel.allowedRW[slotKey{p.num, slot}]
}
