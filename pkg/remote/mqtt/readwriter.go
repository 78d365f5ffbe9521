package mqtt

import (
	"io"
)

// Topic names of the two tunnel directions under the queue prefix.
const (
	TopicSyscall = "syscall"
	TopicUpcall  = "upcall"
)

// ReadWriter implements remote.PacketReadWriter over a Queue.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
}

// NewReadWriter creates the ReadWriter.
func NewReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16)}
}

// ForClient sets topics using the tunnel convention for the client
// side: read upcalls, write syscalls.
func (p *ReadWriter) ForClient() *ReadWriter {
	p.SubTopic, p.PubTopic = TopicUpcall, TopicSyscall
	return p
}

// ForServer sets topics using the tunnel convention for the serving
// side: read syscalls, write upcalls.
func (p *ReadWriter) ForServer() *ReadWriter {
	p.SubTopic, p.PubTopic = TopicSyscall, TopicUpcall
	return p
}

// Open connects the queue and subscribes the read topic.
func (p *ReadWriter) Open() error {
	if err := p.Queue.Connect(); err != nil {
		return err
	}
	return p.Queue.Sub(p.SubTopic, func(_ string, payload []byte) {
		pkt := append([]byte(nil), payload...)
		select {
		case p.packetCh <- pkt:
		default:
		}
	})
}

// ReadPacket implements remote.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements remote.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return p.Queue.Pub(p.PubTopic, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	p.Queue.Unsub(p.SubTopic)
	close(p.packetCh)
	return p.Queue.Close()
}
