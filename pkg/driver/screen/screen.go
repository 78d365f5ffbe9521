// Package screen is the client of the screen driver.
package screen

import (
	"github.com/robotalks/drv.go/pkg/driver"
	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/upcall"
)

// DriverNum identifies the screen driver.
const DriverNum uint32 = 0x90001

// Slot is the subscription and grant slot used by every operation.
const Slot uint32 = 0

// Opcodes of the screen driver. These numbers are shared with the
// driver and must not be renumbered.
const (
	opSetupEnabled    = 1
	opSetBrightness   = 3
	opInvertOn        = 4
	opInvertOff       = 5
	opResolutionModes = 11
	opResolutionMode  = 12
	opPixelModes      = 13
	opPixelMode       = 14
	opGetRotation     = 21
	opSetRotation     = 22
	opGetResolution   = 23
	opSetResolution   = 24
	opGetPixelFormat  = 25
	opSetPixelFormat  = 26
	opSetFrame        = 100
	opWrite           = 200
	opFill            = 300
)

// PixelFormat identifies a pixel encoding.
type PixelFormat int32

// Defined pixel formats. FormatError is the documented sentinel for
// unpopulated format queries and never a valid format.
const (
	FormatError    PixelFormat = -1
	FormatMono     PixelFormat = 0
	FormatRGB233   PixelFormat = 1
	FormatRGB565   PixelFormat = 2
	FormatRGB888   PixelFormat = 3
	FormatARGB8888 PixelFormat = 4
)

// BitsPerPixel returns the depth of a pixel format, 0 for unknown.
func BitsPerPixel(f PixelFormat) int {
	switch f {
	case FormatMono:
		return 1
	case FormatRGB233:
		return 8
	case FormatRGB565:
		return 16
	case FormatRGB888:
		return 24
	case FormatARGB8888:
		return 32
	}
	return 0
}

// Rotation identifies the screen orientation.
type Rotation int32

// Defined rotations.
const (
	RotationNormal Rotation = 0
	Rotation90     Rotation = 1
	Rotation180    Rotation = 2
	Rotation270    Rotation = 3
)

// Screen is a screen driver client. One Screen owns the driver's
// subscription slot and the shared framebuffer grant.
type Screen struct {
	client *driver.Client
}

// New creates a Screen over a transport.
func New(t kernel.Transport) *Screen {
	return &Screen{client: driver.New(t, DriverNum, Slot)}
}

// Client exposes the underlying driver client.
func (s *Screen) Client() *driver.Client { return s.client }

// SetupEnabled reports whether the driver allows setup commands
// (resolution, format, rotation changes). It is a synchronous query and
// reports false on any error.
func (s *Screen) SetupEnabled() bool {
	var setup uint32
	if err := s.client.Command(opSetupEnabled, 0, 0, &setup); err != nil {
		return false
	}
	return setup != 0
}

// SetBrightness sets the backlight level.
func (s *Screen) SetBrightness(level uint32) error {
	return s.client.Invoke(opSetBrightness, level, 0, upcall.NewPending())
}

// InvertOn enables inverted rendering.
func (s *Screen) InvertOn() error {
	return s.client.Invoke(opInvertOn, 0, 0, upcall.NewPending())
}

// InvertOff disables inverted rendering.
func (s *Screen) InvertOff() error {
	return s.client.Invoke(opInvertOff, 0, 0, upcall.NewPending())
}

// SupportedResolutions returns the number of resolution modes the
// driver supports. The count defaults to 0 until the driver answers.
func (s *Screen) SupportedResolutions() (int, error) {
	p := upcall.NewPending()
	if err := s.client.Invoke(opResolutionModes, 0, 0, p); err != nil {
		return 0, err
	}
	return int(int32(p.Arg1())), nil
}

// SupportedResolution returns the width and height of resolution mode
// index.
func (s *Screen) SupportedResolution(index uint32) (width, height uint32, err error) {
	p := upcall.NewPending()
	if err = s.client.Invoke(opResolutionMode, index, 0, p); err != nil {
		return
	}
	return p.Arg1(), p.Arg2(), nil
}

// SupportedPixelFormats returns the number of pixel formats the driver
// supports. The count defaults to 0 until the driver answers.
func (s *Screen) SupportedPixelFormats() (int, error) {
	p := upcall.NewPending()
	if err := s.client.Invoke(opPixelModes, 0, 0, p); err != nil {
		return 0, err
	}
	return int(int32(p.Arg1())), nil
}

// SupportedPixelFormat returns the pixel format at index. The format
// defaults to FormatError until the driver answers.
func (s *Screen) SupportedPixelFormat(index uint32) (PixelFormat, error) {
	p := upcall.NewPending()
	errFormat := FormatError
	p.SetDefaults(uint32(errFormat), 0)
	if err := s.client.Invoke(opPixelMode, index, 0, p); err != nil {
		return FormatError, err
	}
	return PixelFormat(int32(p.Arg1())), nil
}

// Rotation returns the current orientation. Defaults to RotationNormal
// until the driver answers.
func (s *Screen) Rotation() (Rotation, error) {
	p := upcall.NewPending()
	p.SetDefaults(uint32(RotationNormal), 0)
	if err := s.client.Invoke(opGetRotation, 0, 0, p); err != nil {
		return RotationNormal, err
	}
	return Rotation(int32(p.Arg1())), nil
}

// SetRotation sets the orientation.
func (s *Screen) SetRotation(r Rotation) error {
	return s.client.Invoke(opSetRotation, uint32(r), 0, upcall.NewPending())
}

// Resolution returns the current width and height.
func (s *Screen) Resolution() (width, height uint32, err error) {
	p := upcall.NewPending()
	if err = s.client.Invoke(opGetResolution, 0, 0, p); err != nil {
		return
	}
	return p.Arg1(), p.Arg2(), nil
}

// SetResolution sets the current width and height.
func (s *Screen) SetResolution(width, height uint32) error {
	return s.client.Invoke(opSetResolution, width, height, upcall.NewPending())
}

// PixelFormat returns the current pixel format. Defaults to FormatError
// until the driver answers.
func (s *Screen) PixelFormat() (PixelFormat, error) {
	p := upcall.NewPending()
	errFormat := FormatError
	p.SetDefaults(uint32(errFormat), 0)
	if err := s.client.Invoke(opGetPixelFormat, 0, 0, p); err != nil {
		return FormatError, err
	}
	return PixelFormat(int32(p.Arg1())), nil
}

// SetPixelFormat sets the current pixel format.
func (s *Screen) SetPixelFormat(f PixelFormat) error {
	return s.client.Invoke(opSetPixelFormat, uint32(f), 0, upcall.NewPending())
}

// SetFrame sets the write window. Coordinates are packed two per
// argument word, 16 bits each.
func (s *Screen) SetFrame(x, y, width, height uint16) error {
	arg1 := uint32(x)<<16 | uint32(y)
	arg2 := uint32(width)<<16 | uint32(height)
	return s.client.Invoke(opSetFrame, arg1, arg2, upcall.NewPending())
}

// Init allocates the shared framebuffer of size bytes and grants it
// read-only to the driver. It fails with kernel.ErrAlready when a
// buffer is already granted, leaving the existing grant unchanged.
func (s *Screen) Init(size int) error {
	return s.client.InitBuffer(size, false)
}

// Buffer exposes the granted framebuffer.
func (s *Screen) Buffer() []byte { return s.client.Buffer() }

// SetColor encodes color at element position pos of the granted buffer,
// big-endian 2-byte layout. Fails with kernel.ErrSize out of range.
func (s *Screen) SetColor(pos int, color uint16) error {
	return s.client.SetWord(pos, color)
}

// Write asks the driver to consume length bytes of the granted buffer
// into the current write window. The length is bounds-checked locally
// against the grant.
func (s *Screen) Write(length int) error {
	if length < 0 || length > s.client.BufferLen() {
		return kernel.ErrSize
	}
	return s.client.Invoke(opWrite, uint32(length), 0, upcall.NewPending())
}

// Fill floods the current write window. The fill color is the word at
// buffer position 0, written before the command is issued.
func (s *Screen) Fill(color uint16) error {
	if err := s.SetColor(0, color); err != nil {
		return err
	}
	return s.client.Invoke(opFill, 0, 0, upcall.NewPending())
}
