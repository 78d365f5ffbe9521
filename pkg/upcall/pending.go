// Package upcall bridges asynchronous completion upcalls to synchronous
// blocking calls.
package upcall

import (
	"errors"
	"time"

	"github.com/robotalks/drv.go/pkg/kernel"
)

// ErrTimeout indicates a bounded wait expired with the request still
// outstanding. It is a library condition, never a kernel error code.
var ErrTimeout = errors.New("wait timeout")

// Pending represents one outstanding asynchronous operation. It is
// created immediately before a command is issued, mutated exactly once
// by the upcall, and discarded after the wait observes completion.
type Pending struct {
	err  error
	arg1 uint32
	arg2 uint32
	done bool
}

// NewPending creates a Pending with zeroed result words. Callers
// preload sentinel defaults before issuing the command.
func NewPending() *Pending {
	return &Pending{}
}

// SetDefaults preloads the result words so that they hold documented
// sentinels if the upcall never fires.
func (p *Pending) SetDefaults(arg1, arg2 uint32) {
	p.arg1, p.arg2 = arg1, arg2
}

// Upcall records a completion. It decodes the status, copies the
// auxiliary words and sets the completion flag last: a consumer seeing
// Done() true always sees fully populated results.
func (p *Pending) Upcall(status kernel.Status, arg1, arg2 uint32) {
	p.err = kernel.StatusError(status)
	p.arg1 = arg1
	p.arg2 = arg2
	p.done = true
}

// Done reports whether the upcall has fired.
func (p *Pending) Done() bool { return p.done }

// Err returns the decoded completion status. Valid only when Done.
func (p *Pending) Err() error { return p.err }

// Arg1 returns the first auxiliary result word.
func (p *Pending) Arg1() uint32 { return p.arg1 }

// Arg2 returns the second auxiliary result word.
func (p *Pending) Arg2() uint32 { return p.arg2 }

// Wait blocks until p completes, ceding control to the kernel at every
// iteration. If the driver never calls back, Wait never returns; use
// WaitTimeout for a bound.
func Wait(y kernel.Yielder, p *Pending) {
	for !p.done {
		y.Yield()
	}
}

// WaitTimeout blocks until p completes or d elapses. On expiry it
// returns ErrTimeout and the request remains outstanding: a late
// upcall still completes p.
func WaitTimeout(y kernel.Yielder, p *Pending, d time.Duration) error {
	deadline := time.Now().Add(d)
	for !p.done {
		remain := time.Until(deadline)
		if remain <= 0 {
			return ErrTimeout
		}
		y.YieldTimeout(remain)
	}
	return nil
}
