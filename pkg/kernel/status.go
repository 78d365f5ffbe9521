package kernel

import "fmt"

// Status is a kernel-side completion status. The numbering is part of
// the wire contract with the driver and must not change.
type Status uint32

// Defined statuses.
const (
	StatusSuccess Status = iota
	StatusFail
	StatusBusy
	StatusAlready
	StatusOff
	StatusReserve
	StatusInvalid
	StatusSize
	StatusCancel
	StatusNoMem
	StatusNoSupport
	StatusNoDevice
)

// ErrorCode is the signed status-code domain surfaced to callers.
// Zero is never a valid ErrorCode; success is a nil error.
type ErrorCode int32

// Defined error codes. The values are fixed by the same contract as
// Status and mirror it one to one.
const (
	ErrFail        ErrorCode = -1
	ErrBusy        ErrorCode = -2
	ErrAlready     ErrorCode = -3
	ErrOff         ErrorCode = -4
	ErrReserve     ErrorCode = -5
	ErrInvalid     ErrorCode = -6
	ErrSize        ErrorCode = -7
	ErrCancel      ErrorCode = -8
	ErrNoMem       ErrorCode = -9
	ErrNoSupport   ErrorCode = -10
	ErrNoDevice    ErrorCode = -11
	ErrUninstalled ErrorCode = -12
	ErrNoAck       ErrorCode = -13
)

var errorNames = map[ErrorCode]string{
	ErrFail:        "failure",
	ErrBusy:        "busy",
	ErrAlready:     "already in use",
	ErrOff:         "powered off",
	ErrReserve:     "reservation required",
	ErrInvalid:     "invalid parameters",
	ErrSize:        "size exceeded",
	ErrCancel:      "canceled",
	ErrNoMem:       "out of memory",
	ErrNoSupport:   "not supported",
	ErrNoDevice:    "no such device",
	ErrUninstalled: "not installed",
	ErrNoAck:       "no acknowledgment",
}

// Error implements error.
func (e ErrorCode) Error() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("kernel error %d", int32(e))
}

// StatusError maps a completion status to the caller-facing error
// domain. StatusSuccess maps to nil.
func StatusError(s Status) error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusFail:
		return ErrFail
	case StatusBusy:
		return ErrBusy
	case StatusAlready:
		return ErrAlready
	case StatusOff:
		return ErrOff
	case StatusReserve:
		return ErrReserve
	case StatusInvalid:
		return ErrInvalid
	case StatusSize:
		return ErrSize
	case StatusCancel:
		return ErrCancel
	case StatusNoMem:
		return ErrNoMem
	case StatusNoSupport:
		return ErrNoSupport
	case StatusNoDevice:
		return ErrNoDevice
	}
	return ErrFail
}

// ErrorStatus is the inverse of StatusError, used by kernel
// implementations reporting a caller-facing error back over the wire.
// nil maps to StatusSuccess, unknown errors to StatusFail.
func ErrorStatus(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	code, ok := err.(ErrorCode)
	if !ok {
		return StatusFail
	}
	switch code {
	case ErrBusy:
		return StatusBusy
	case ErrAlready:
		return StatusAlready
	case ErrOff:
		return StatusOff
	case ErrReserve:
		return StatusReserve
	case ErrInvalid:
		return StatusInvalid
	case ErrSize:
		return StatusSize
	case ErrCancel:
		return StatusCancel
	case ErrNoMem:
		return StatusNoMem
	case ErrNoSupport:
		return StatusNoSupport
	case ErrNoDevice:
		return StatusNoDevice
	}
	return StatusFail
}
