package remote

import (
	"errors"

	"github.com/golang/protobuf/proto"
)

// Syscall ops.
const (
	OpCommand   uint32 = 1
	OpSubscribe uint32 = 2
	OpAllowRO   uint32 = 3
	OpAllowRW   uint32 = 4
)

// Syscall is one tunneled syscall request.
// Arg0 is the opcode for OpCommand and the slot otherwise. For
// OpSubscribe, Arg1 != 0 registers and Arg1 == 0 revokes. For allows,
// Data carries the granted bytes and an empty Data revokes.
type Syscall struct {
	Seq    uint32 `protobuf:"varint,1,opt,name=seq" json:"seq,omitempty"`
	Op     uint32 `protobuf:"varint,2,opt,name=op" json:"op,omitempty"`
	Driver uint32 `protobuf:"varint,3,opt,name=driver" json:"driver,omitempty"`
	Arg0   uint32 `protobuf:"varint,4,opt,name=arg0" json:"arg0,omitempty"`
	Arg1   uint32 `protobuf:"varint,5,opt,name=arg1" json:"arg1,omitempty"`
	Arg2   uint32 `protobuf:"varint,6,opt,name=arg2" json:"arg2,omitempty"`
	Data   []byte `protobuf:"bytes,7,opt,name=data" json:"data,omitempty"`
}

// Reset implements proto.Message.
func (m *Syscall) Reset() { *m = Syscall{} }

// String implements proto.Message.
func (m *Syscall) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Syscall) ProtoMessage() {}

// SyscallReturn is the acceptance result of a Syscall. Error is 0 on
// acceptance, otherwise a kernel.ErrorCode value.
type SyscallReturn struct {
	Seq   uint32 `protobuf:"varint,1,opt,name=seq" json:"seq,omitempty"`
	Error int32  `protobuf:"zigzag32,2,opt,name=error" json:"error,omitempty"`
	V1    uint32 `protobuf:"varint,3,opt,name=v1" json:"v1,omitempty"`
	V2    uint32 `protobuf:"varint,4,opt,name=v2" json:"v2,omitempty"`
}

// Reset implements proto.Message.
func (m *SyscallReturn) Reset() { *m = SyscallReturn{} }

// String implements proto.Message.
func (m *SyscallReturn) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*SyscallReturn) ProtoMessage() {}

// UpcallEvent is a completion upcall forwarded from the remote kernel.
// Data carries a snapshot of the read-write grant for the slot, if any.
type UpcallEvent struct {
	Driver uint32 `protobuf:"varint,1,opt,name=driver" json:"driver,omitempty"`
	Slot   uint32 `protobuf:"varint,2,opt,name=slot" json:"slot,omitempty"`
	Status uint32 `protobuf:"varint,3,opt,name=status" json:"status,omitempty"`
	Arg1   uint32 `protobuf:"varint,4,opt,name=arg1" json:"arg1,omitempty"`
	Arg2   uint32 `protobuf:"varint,5,opt,name=arg2" json:"arg2,omitempty"`
	Data   []byte `protobuf:"bytes,6,opt,name=data" json:"data,omitempty"`
}

// Reset implements proto.Message.
func (m *UpcallEvent) Reset() { *m = UpcallEvent{} }

// String implements proto.Message.
func (m *UpcallEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*UpcallEvent) ProtoMessage() {}

// Envelope frames one message of either direction.
type Envelope struct {
	Syscall *Syscall       `protobuf:"bytes,1,opt,name=syscall" json:"syscall,omitempty"`
	Return  *SyscallReturn `protobuf:"bytes,2,opt,name=return" json:"return,omitempty"`
	Upcall  *UpcallEvent   `protobuf:"bytes,3,opt,name=upcall" json:"upcall,omitempty"`
}

// Reset implements proto.Message.
func (m *Envelope) Reset() { *m = Envelope{} }

// String implements proto.Message.
func (m *Envelope) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Envelope) ProtoMessage() {}

// ErrBadFrame indicates a packet that is not a valid Envelope.
var ErrBadFrame = errors.New("bad frame")

// Encode marshals the envelope into a packet.
func (m *Envelope) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeEnvelope unmarshals a packet.
func DecodeEnvelope(pkt []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := proto.Unmarshal(pkt, env); err != nil {
		return nil, err
	}
	if env.Syscall == nil && env.Return == nil && env.Upcall == nil {
		return nil, ErrBadFrame
	}
	return env, nil
}
