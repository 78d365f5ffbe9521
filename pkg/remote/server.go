package remote

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/drv.go/pkg/framework"
	"github.com/robotalks/drv.go/pkg/kernel"
)

// Server exposes a local kernel.Transport to one remote peer over a
// packet pipe. It forwards syscall frames into the local kernel and
// upcalls back out as events.
type Server struct {
	Transport kernel.Transport

	rw       PacketReadWriter
	sendLock sync.Mutex

	rwGrants map[slotKey][]byte
	lock     sync.Mutex
}

// YieldPumpInterval bounds each wait of the server's yield pump so it
// can observe cancellation.
const YieldPumpInterval = 100 * time.Millisecond

// NewServer creates a Server around a local transport.
func NewServer(t kernel.Transport, rw PacketReadWriter) *Server {
	return &Server{
		Transport: t,
		rw:        rw,
		rwGrants:  make(map[slotKey][]byte),
	}
}

// Run implements Runnable: it serves syscall frames and pumps the local
// kernel's yield loop so upcalls flow even while no frame is in flight.
func (s *Server) Run(ctx context.Context) error {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.yieldPump(pumpCtx)
	return fx.RunWithContextCloser(ctx, s, s.serve)
}

// Close closes the underlying pipe when it supports closing.
func (s *Server) Close() error {
	if closer, ok := s.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Server) yieldPump(ctx context.Context) {
	for ctx.Err() == nil {
		s.Transport.YieldTimeout(YieldPumpInterval)
	}
}

func (s *Server) serve() error {
	for {
		pkt, err := s.rw.ReadPacket()
		if err != nil {
			return err
		}
		env, err := DecodeEnvelope(pkt)
		if err != nil {
			glog.Errorf("server: %v", err)
			continue
		}
		if env.Syscall == nil {
			continue
		}
		if err := s.send(&Envelope{Return: s.dispatch(env.Syscall)}); err != nil {
			return err
		}
	}
}

func (s *Server) send(env *Envelope) error {
	pkt, err := env.Encode()
	if err != nil {
		return err
	}
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	return s.rw.WritePacket(pkt)
}

func (s *Server) dispatch(sc *Syscall) *SyscallReturn {
	ret := &SyscallReturn{Seq: sc.Seq}
	switch sc.Op {
	case OpCommand:
		r := s.Transport.Command(sc.Driver, sc.Arg0, sc.Arg1, sc.Arg2)
		if r.Failure {
			ret.Error = int32(r.Err)
		} else {
			ret.V1, ret.V2 = r.Values[0], r.Values[1]
		}
	case OpSubscribe:
		var up kernel.Upcall
		if sc.Arg1 != 0 {
			up = s.upcallFor(sc.Driver, sc.Arg0)
		}
		if r := s.Transport.Subscribe(sc.Driver, sc.Arg0, up); r.Failure {
			ret.Error = int32(r.Err)
		}
	case OpAllowRO:
		var buf []byte
		if len(sc.Data) > 0 {
			buf = append([]byte(nil), sc.Data...)
		}
		if r := s.Transport.AllowReadOnly(sc.Driver, sc.Arg0, buf); r.Failure {
			ret.Error = int32(r.Err)
		}
	case OpAllowRW:
		key := slotKey{sc.Driver, sc.Arg0}
		var buf []byte
		if len(sc.Data) > 0 {
			buf = append([]byte(nil), sc.Data...)
		}
		r := s.Transport.AllowReadWrite(sc.Driver, sc.Arg0, buf)
		if r.Failure {
			ret.Error = int32(r.Err)
			break
		}
		s.lock.Lock()
		if buf == nil {
			delete(s.rwGrants, key)
		} else {
			s.rwGrants[key] = buf
		}
		s.lock.Unlock()
	default:
		ret.Error = int32(kernel.ErrNoSupport)
	}
	return ret
}

// upcallFor builds the local upcall forwarding completions for a
// driver/slot pair, attaching a snapshot of its read-write grant.
func (s *Server) upcallFor(driver, slot uint32) kernel.Upcall {
	return func(status kernel.Status, arg1, arg2 uint32) {
		ev := &UpcallEvent{
			Driver: driver,
			Slot:   slot,
			Status: uint32(status),
			Arg1:   arg1,
			Arg2:   arg2,
		}
		s.lock.Lock()
		if buf := s.rwGrants[slotKey{driver, slot}]; buf != nil {
			ev.Data = append([]byte(nil), buf...)
		}
		s.lock.Unlock()
		if err := s.send(&Envelope{Upcall: ev}); err != nil {
			glog.Errorf("server: forward upcall: %v", err)
		}
	}
}
