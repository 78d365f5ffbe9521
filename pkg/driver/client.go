// Package driver provides the client side of the fixed
// subscribe/command/wait protocol spoken with a kernel driver.
package driver

import (
	"time"

	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/upcall"
)

// Client addresses one driver instance over a Transport. It owns the
// driver's subscription slot and at most one granted buffer; issuing
// requests is strictly one at a time.
type Client struct {
	transport kernel.Transport
	num       uint32
	slot      uint32

	pending  *upcall.Pending
	buffer   []byte
	granted  bool
	writable bool
}

// New creates a Client for the driver identified by num, using slot for
// both subscriptions and grants.
func New(t kernel.Transport, num, slot uint32) *Client {
	return &Client{transport: t, num: num, slot: slot}
}

// Transport gets the underlying transport.
func (c *Client) Transport() kernel.Transport { return c.transport }

// Num gets the driver number.
func (c *Client) Num() uint32 { return c.num }

// Invoke runs one complete operation: subscribe the upcall, issue the
// command, block until completion and return the decoded status. Any
// transport rejection is surfaced immediately without blocking; at that
// point no upcall can ever fire. Out values preloaded into p keep their
// defaults whenever a non-nil error is returned.
func (c *Client) Invoke(opcode, arg1, arg2 uint32, p *upcall.Pending) error {
	if err := c.begin(p); err != nil {
		return err
	}
	ret := c.transport.Command(c.num, opcode, arg1, arg2)
	if err := ret.Done(); err != nil {
		c.pending = nil
		return err
	}
	upcall.Wait(c.transport, p)
	c.pending = nil
	return p.Err()
}

// InvokeTimeout is Invoke with a bounded wait. On expiry it returns
// upcall.ErrTimeout; the operation itself cannot be canceled and the
// slot stays busy until the driver calls back.
func (c *Client) InvokeTimeout(opcode, arg1, arg2 uint32, p *upcall.Pending, d time.Duration) error {
	if err := c.begin(p); err != nil {
		return err
	}
	ret := c.transport.Command(c.num, opcode, arg1, arg2)
	if err := ret.Done(); err != nil {
		c.pending = nil
		return err
	}
	if err := upcall.WaitTimeout(c.transport, p, d); err != nil {
		return err
	}
	c.pending = nil
	return p.Err()
}

func (c *Client) begin(p *upcall.Pending) error {
	// One request per slot. Invoke blocks, so a conflict can only be
	// caused by re-entry from an upcall or an expired bounded wait.
	if c.pending != nil && !c.pending.Done() {
		return kernel.ErrAlready
	}
	if err := c.transport.Subscribe(c.num, c.slot, p.Upcall).Done(); err != nil {
		return err
	}
	c.pending = p
	return nil
}

// Command issues a bare command with no completion upcall, decoding the
// single-u32 convention into out. Used for synchronous queries.
func (c *Client) Command(opcode, arg1, arg2 uint32, out *uint32) error {
	return c.transport.Command(c.num, opcode, arg1, arg2).DoneU32(out)
}
