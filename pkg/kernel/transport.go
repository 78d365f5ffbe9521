package kernel

import "time"

// Upcall is a completion callback registered with Subscribe. It runs
// only while the application goroutine is inside Yield.
type Upcall func(status Status, arg1, arg2 uint32)

// CommandReturn is the raw result of Command. It reports only whether
// the request was accepted; completion of the asynchronous work arrives
// later through the subscribed upcall.
type CommandReturn struct {
	Err    ErrorCode // valid when Failure
	Values [2]uint32 // valid when !Failure, meaning is per-opcode

	Failure bool
}

// Done decodes the no-value convention: only acceptance matters.
func (r CommandReturn) Done() error {
	if r.Failure {
		return r.Err
	}
	return nil
}

// DoneU32 decodes the single-u32 convention: on acceptance the first
// payload word is written to out. On failure out is left untouched.
func (r CommandReturn) DoneU32(out *uint32) error {
	if r.Failure {
		return r.Err
	}
	*out = r.Values[0]
	return nil
}

// SubscribeReturn is the raw result of Subscribe. It carries acceptance
// only; the operation status arrives via the registered upcall.
type SubscribeReturn struct {
	Err     ErrorCode
	Failure bool
}

// Done decodes acceptance.
func (r SubscribeReturn) Done() error {
	if r.Failure {
		return r.Err
	}
	return nil
}

// AllowReturn is the raw result of AllowReadOnly/AllowReadWrite.
type AllowReturn struct {
	Err     ErrorCode
	Failure bool
}

// Done decodes acceptance.
func (r AllowReturn) Done() error {
	if r.Failure {
		return r.Err
	}
	return nil
}

// CommandOK is an accepted CommandReturn carrying the given payload.
func CommandOK(values ...uint32) CommandReturn {
	var r CommandReturn
	copy(r.Values[:], values)
	return r
}

// CommandErr is a refused CommandReturn.
func CommandErr(code ErrorCode) CommandReturn {
	return CommandReturn{Failure: true, Err: code}
}

// SubscribeErr is a refused SubscribeReturn.
func SubscribeErr(code ErrorCode) SubscribeReturn {
	return SubscribeReturn{Failure: true, Err: code}
}

// AllowErr is a refused AllowReturn.
func AllowErr(code ErrorCode) AllowReturn {
	return AllowReturn{Failure: true, Err: code}
}

// Yielder cooperatively suspends the calling goroutine. Upcalls are
// delivered only from inside Yield/YieldTimeout, nowhere else.
type Yielder interface {
	// Yield suspends until at least one upcall has been delivered.
	Yield()
	// YieldTimeout suspends for at most d and reports whether any
	// upcall was delivered before expiry.
	YieldTimeout(d time.Duration) bool
}

// Transport issues the primitive operations crossing the privilege
// boundary. All calls return a raw result the caller must inspect
// before proceeding.
type Transport interface {
	// Command fires a driver-specific opcode with two word-sized
	// arguments. It does not block on the underlying work.
	Command(driver, opcode, arg1, arg2 uint32) CommandReturn
	// Subscribe registers an upcall for a driver/slot pair, replacing
	// any prior registration for that slot. A nil upcall revokes.
	Subscribe(driver, slot uint32, up Upcall) SubscribeReturn
	// AllowReadOnly grants the driver read access to buf until revoked
	// with a nil buffer.
	AllowReadOnly(driver, slot uint32, buf []byte) AllowReturn
	// AllowReadWrite grants the driver read/write access to buf until
	// revoked with a nil buffer.
	AllowReadWrite(driver, slot uint32, buf []byte) AllowReturn

	Yielder
}
