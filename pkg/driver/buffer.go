package driver

import (
	"encoding/binary"

	"github.com/robotalks/drv.go/pkg/kernel"
)

// WordSize is the fixed element size of SetWord, bytes per element.
// Elements are laid out big-endian; the driver decodes the same layout.
const WordSize = 2

// InitBuffer allocates a zero-filled region of exactly size bytes and
// grants it to the driver. It fails with kernel.ErrAlready if a buffer
// is already granted; the existing grant is left unchanged. On any
// failure no partial grant remains.
func (c *Client) InitBuffer(size int, writable bool) error {
	if c.granted {
		return kernel.ErrAlready
	}
	if size <= 0 {
		return kernel.ErrInvalid
	}
	buf := make([]byte, size)
	var ret kernel.AllowReturn
	if writable {
		ret = c.transport.AllowReadWrite(c.num, c.slot, buf)
	} else {
		ret = c.transport.AllowReadOnly(c.num, c.slot, buf)
	}
	if err := ret.Done(); err != nil {
		return err
	}
	c.buffer = buf
	c.granted = true
	c.writable = writable
	return nil
}

// ReleaseBuffer revokes the grant and drops the buffer. It is a no-op
// when nothing is granted.
func (c *Client) ReleaseBuffer() error {
	if !c.granted {
		return nil
	}
	var ret kernel.AllowReturn
	if c.writable {
		ret = c.transport.AllowReadWrite(c.num, c.slot, nil)
	} else {
		ret = c.transport.AllowReadOnly(c.num, c.slot, nil)
	}
	if err := ret.Done(); err != nil {
		return err
	}
	c.buffer = nil
	c.granted = false
	return nil
}

// Buffer exposes the granted region so bulk commands can fill it
// without re-granting. Nil when nothing is granted.
func (c *Client) Buffer() []byte { return c.buffer }

// BufferLen returns the granted length in bytes, 0 when ungranted.
func (c *Client) BufferLen() int { return len(c.buffer) }

// SetWord encodes v into the granted buffer at element position pos
// using the fixed big-endian 2-byte layout. It fails with
// kernel.ErrSize, writing nothing, when the element would cross the
// granted length.
func (c *Client) SetWord(pos int, v uint16) error {
	if pos < 0 || (pos+1)*WordSize > len(c.buffer) {
		return kernel.ErrSize
	}
	binary.BigEndian.PutUint16(c.buffer[pos*WordSize:], v)
	return nil
}
