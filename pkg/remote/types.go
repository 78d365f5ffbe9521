// Package remote tunnels the syscall boundary over a packet pipe, so a
// client can drive a kernel hosted in another process or on another
// machine (e.g. a board simulator behind a broker).
package remote

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
