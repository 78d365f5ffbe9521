// Package stream provides a length-prefixed packet pipe over any byte
// stream, e.g. a serial link to a board.
package stream

import (
	"encoding/binary"
	"io"
)

// ReadWriter implements remote.PacketReadWriter.
// Each packet is prefixed by 4 bytes (little-endian) of length.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter over an io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements remote.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements remote.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	size := uint32(len(pkt))
	if err := binary.Write(p, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := p.Write(pkt[:size])
	return err
}

// Close implements io.Closer when the underlying stream supports it.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
