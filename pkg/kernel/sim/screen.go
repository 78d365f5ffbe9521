package sim

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/robotalks/drv.go/pkg/kernel"
)

// ScreenDriverNum is the driver number the screen driver registers
// under, shared with the client side.
const ScreenDriverNum uint32 = 0x90001

// Screen driver opcodes, kernel side of the contract.
const (
	screenSetupEnabled    = 1
	screenSetBrightness   = 3
	screenInvertOn        = 4
	screenInvertOff       = 5
	screenResolutionModes = 11
	screenResolutionMode  = 12
	screenPixelModes      = 13
	screenPixelMode       = 14
	screenGetRotation     = 21
	screenSetRotation     = 22
	screenGetResolution   = 23
	screenSetResolution   = 24
	screenGetPixelFormat  = 25
	screenSetPixelFormat  = 26
	screenSetFrame        = 100
	screenWrite           = 200
	screenFill            = 300
)

// Mode is one supported screen resolution.
type Mode struct {
	Width  uint32
	Height uint32
}

// ScreenDriver emulates a screen driver: a mode table, the current
// setup state and a framebuffer consumed from the granted buffer.
type ScreenDriver struct {
	// Setup permits resolution/format/rotation changes when true.
	Setup bool
	// Modes are the supported resolutions; index 0 is the default.
	Modes []Mode
	// Formats are the supported pixel format numbers.
	Formats []int32

	width      uint32
	height     uint32
	format     int32
	rotation   uint32
	brightness uint32
	inverted   bool

	frameX uint16
	frameY uint16
	frameW uint16
	frameH uint16

	fb []byte
}

// NewScreenDriver creates a ScreenDriver with the given mode and
// format tables, sized to the first mode and format.
func NewScreenDriver(modes []Mode, formats []int32) *ScreenDriver {
	d := &ScreenDriver{Setup: true, Modes: modes, Formats: formats}
	if len(modes) > 0 {
		d.width, d.height = modes[0].Width, modes[0].Height
	}
	if len(formats) > 0 {
		d.format = formats[0]
	}
	d.resetFrame()
	d.resize()
	return d
}

// DefaultScreenDriver creates a ScreenDriver resembling a small TFT:
// 160x128 and 128x128 modes, 16-bit and 24-bit formats.
func DefaultScreenDriver() *ScreenDriver {
	return NewScreenDriver(
		[]Mode{{160, 128}, {128, 128}},
		[]int32{2, 3},
	)
}

// Framebuffer exposes the emulated framebuffer for assertions.
func (d *ScreenDriver) Framebuffer() []byte { return d.fb }

// Command implements Driver.
func (d *ScreenDriver) Command(proc *Process, opcode, arg1, arg2 uint32) kernel.CommandReturn {
	switch opcode {
	case screenSetupEnabled:
		var setup uint32
		if d.Setup {
			setup = 1
		}
		return kernel.CommandOK(setup)
	case screenSetBrightness:
		d.brightness = arg1
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenInvertOn:
		d.inverted = true
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenInvertOff:
		d.inverted = false
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenResolutionModes:
		proc.Schedule(0, kernel.StatusSuccess, uint32(len(d.Modes)), 0)
	case screenResolutionMode:
		if int(arg1) >= len(d.Modes) {
			proc.Schedule(0, kernel.StatusInvalid, 0, 0)
			break
		}
		mode := d.Modes[arg1]
		proc.Schedule(0, kernel.StatusSuccess, mode.Width, mode.Height)
	case screenPixelModes:
		proc.Schedule(0, kernel.StatusSuccess, uint32(len(d.Formats)), 0)
	case screenPixelMode:
		if int(arg1) >= len(d.Formats) {
			proc.Schedule(0, kernel.StatusInvalid, 0, 0)
			break
		}
		proc.Schedule(0, kernel.StatusSuccess, uint32(d.Formats[arg1]), 0)
	case screenGetRotation:
		proc.Schedule(0, kernel.StatusSuccess, d.rotation, 0)
	case screenSetRotation:
		if !d.Setup {
			return kernel.CommandErr(kernel.ErrNoSupport)
		}
		d.rotation = arg1 & 3
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenGetResolution:
		proc.Schedule(0, kernel.StatusSuccess, d.width, d.height)
	case screenSetResolution:
		if !d.Setup {
			return kernel.CommandErr(kernel.ErrNoSupport)
		}
		if !d.supportedMode(arg1, arg2) {
			proc.Schedule(0, kernel.StatusInvalid, 0, 0)
			break
		}
		d.width, d.height = arg1, arg2
		d.resetFrame()
		d.resize()
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenGetPixelFormat:
		proc.Schedule(0, kernel.StatusSuccess, uint32(d.format), 0)
	case screenSetPixelFormat:
		if !d.Setup {
			return kernel.CommandErr(kernel.ErrNoSupport)
		}
		if !d.supportedFormat(int32(arg1)) {
			proc.Schedule(0, kernel.StatusInvalid, 0, 0)
			break
		}
		d.format = int32(arg1)
		d.resize()
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenSetFrame:
		d.frameX = uint16(arg1 >> 16)
		d.frameY = uint16(arg1)
		d.frameW = uint16(arg2 >> 16)
		d.frameH = uint16(arg2)
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenWrite:
		buf := proc.ReadOnly(0)
		if buf == nil {
			return kernel.CommandErr(kernel.ErrReserve)
		}
		n := int(arg1)
		if n > len(buf) {
			n = len(buf)
		}
		d.blit(buf[:n])
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	case screenFill:
		buf := proc.ReadOnly(0)
		if len(buf) < 2 {
			return kernel.CommandErr(kernel.ErrReserve)
		}
		d.fill(binary.BigEndian.Uint16(buf))
		proc.Schedule(0, kernel.StatusSuccess, 0, 0)
	default:
		glog.V(2).Infof("screen: unknown opcode %d", opcode)
		return kernel.CommandErr(kernel.ErrNoSupport)
	}
	return kernel.CommandReturn{}
}

func (d *ScreenDriver) supportedMode(w, h uint32) bool {
	for _, m := range d.Modes {
		if m.Width == w && m.Height == h {
			return true
		}
	}
	return false
}

func (d *ScreenDriver) supportedFormat(f int32) bool {
	for _, known := range d.Formats {
		if known == f {
			return true
		}
	}
	return false
}

func (d *ScreenDriver) resetFrame() {
	d.frameX, d.frameY = 0, 0
	d.frameW, d.frameH = uint16(d.width), uint16(d.height)
}

func (d *ScreenDriver) resize() {
	d.fb = make([]byte, int(d.width)*int(d.height)*d.pixelBytes())
}

func (d *ScreenDriver) pixelBytes() int {
	switch d.format {
	case 3: // 24-bit RGB
		return 3
	case 4: // 32-bit ARGB
		return 4
	}
	return 2
}

// blit copies src row by row into the current write window.
func (d *ScreenDriver) blit(src []byte) {
	px := d.pixelBytes()
	rowBytes := int(d.frameW) * px
	stride := int(d.width) * px
	for row := 0; row < int(d.frameH) && len(src) > 0; row++ {
		n := rowBytes
		if n > len(src) {
			n = len(src)
		}
		off := (int(d.frameY)+row)*stride + int(d.frameX)*px
		if off+n > len(d.fb) {
			break
		}
		copy(d.fb[off:off+n], src[:n])
		src = src[n:]
	}
}

// fill floods the current write window with a 2-byte color pattern.
func (d *ScreenDriver) fill(color uint16) {
	var pattern [2]byte
	binary.BigEndian.PutUint16(pattern[:], color)
	px := d.pixelBytes()
	stride := int(d.width) * px
	for row := 0; row < int(d.frameH); row++ {
		off := (int(d.frameY)+row)*stride + int(d.frameX)*px
		for col := 0; col < int(d.frameW); col++ {
			at := off + col*px
			if at+2 > len(d.fb) {
				return
			}
			copy(d.fb[at:at+2], pattern[:])
		}
	}
}
