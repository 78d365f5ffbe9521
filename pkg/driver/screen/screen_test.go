package screen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/kernel/sim"
)

type screenTestEnv struct {
	t      *testing.T
	driver *sim.ScreenDriver
	screen *Screen
}

func newScreenTestEnv(t *testing.T) *screenTestEnv {
	driver := sim.DefaultScreenDriver()
	k := sim.NewKernel()
	k.Register(DriverNum, driver)
	return &screenTestEnv{t: t, driver: driver, screen: New(k)}
}

func TestResolutionQueries(t *testing.T) {
	env := newScreenTestEnv(t)
	w, h, err := env.screen.Resolution()
	require.NoError(t, err)
	require.Equal(t, uint32(160), w)
	require.Equal(t, uint32(128), h)

	count, err := env.screen.SupportedResolutions()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	w, h, err = env.screen.SupportedResolution(1)
	require.NoError(t, err)
	require.Equal(t, uint32(128), w)
	require.Equal(t, uint32(128), h)

	_, _, err = env.screen.SupportedResolution(5)
	require.Equal(t, error(kernel.ErrInvalid), err)
}

func TestSetResolution(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.SetResolution(128, 128))
	w, h, err := env.screen.Resolution()
	require.NoError(t, err)
	require.Equal(t, uint32(128), w)
	require.Equal(t, uint32(128), h)

	require.Equal(t, error(kernel.ErrInvalid), env.screen.SetResolution(1, 1))
}

func TestPixelFormatQueries(t *testing.T) {
	env := newScreenTestEnv(t)
	f, err := env.screen.PixelFormat()
	require.NoError(t, err)
	require.Equal(t, FormatRGB565, f)

	count, err := env.screen.SupportedPixelFormats()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	f, err = env.screen.SupportedPixelFormat(1)
	require.NoError(t, err)
	require.Equal(t, FormatRGB888, f)

	// failed queries surface the sentinel, never a valid-looking value
	f, err = env.screen.SupportedPixelFormat(9)
	require.Equal(t, error(kernel.ErrInvalid), err)
	require.Equal(t, FormatError, f)
}

func TestSetPixelFormat(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.SetPixelFormat(FormatRGB888))
	f, err := env.screen.PixelFormat()
	require.NoError(t, err)
	require.Equal(t, FormatRGB888, f)

	require.Equal(t, error(kernel.ErrInvalid), env.screen.SetPixelFormat(FormatMono))
}

func TestRotation(t *testing.T) {
	env := newScreenTestEnv(t)
	r, err := env.screen.Rotation()
	require.NoError(t, err)
	require.Equal(t, RotationNormal, r)

	require.NoError(t, env.screen.SetRotation(Rotation180))
	r, err = env.screen.Rotation()
	require.NoError(t, err)
	require.Equal(t, Rotation180, r)
}

func TestSetupGating(t *testing.T) {
	env := newScreenTestEnv(t)
	require.True(t, env.screen.SetupEnabled())

	env.driver.Setup = false
	require.False(t, env.screen.SetupEnabled())
	// rejected at the command itself, before any blocking
	require.Equal(t, error(kernel.ErrNoSupport), env.screen.SetRotation(Rotation90))
	require.Equal(t, error(kernel.ErrNoSupport), env.screen.SetResolution(128, 128))
}

func TestBrightnessAndInvert(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.SetBrightness(90))
	require.NoError(t, env.screen.InvertOn())
	require.NoError(t, env.screen.InvertOff())
}

func TestInitTwice(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.Init(256))
	require.Equal(t, error(kernel.ErrAlready), env.screen.Init(256))
	require.Equal(t, 256, len(env.screen.Buffer()))
}

func TestSetColorEncoding(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.Init(256))
	require.NoError(t, env.screen.SetColor(0, 0xABCD))
	require.Equal(t, byte(0xAB), env.screen.Buffer()[0])
	require.Equal(t, byte(0xCD), env.screen.Buffer()[1])

	require.Equal(t, error(kernel.ErrSize), env.screen.SetColor(200, 0x1234))
}

func TestWrite(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.Init(256))
	for i := 0; i < 32; i++ {
		require.NoError(t, env.screen.SetColor(i, uint16(0x0100+i)))
	}
	require.NoError(t, env.screen.SetFrame(0, 0, 8, 4))
	require.NoError(t, env.screen.Write(64))

	// 8 pixels * 2 bytes per row, 160 pixel stride
	fb := env.driver.Framebuffer()
	src := env.screen.Buffer()
	for row := 0; row < 4; row++ {
		require.Equal(t, src[row*16:(row+1)*16], fb[row*320:row*320+16])
	}

	require.Equal(t, error(kernel.ErrSize), env.screen.Write(300))
}

func TestWriteWithoutBuffer(t *testing.T) {
	env := newScreenTestEnv(t)
	require.Equal(t, error(kernel.ErrReserve), env.screen.Write(0))
}

func TestFill(t *testing.T) {
	env := newScreenTestEnv(t)
	require.NoError(t, env.screen.Init(256))
	require.NoError(t, env.screen.Fill(0xF800))

	// the fill color travels through buffer position 0
	require.Equal(t, byte(0xF8), env.screen.Buffer()[0])
	require.Equal(t, byte(0x00), env.screen.Buffer()[1])

	fb := env.driver.Framebuffer()
	require.Equal(t, byte(0xF8), fb[0])
	require.Equal(t, byte(0x00), fb[1])
	require.Equal(t, byte(0xF8), fb[len(fb)-2])
}

func TestBitsPerPixel(t *testing.T) {
	require.Equal(t, 1, BitsPerPixel(FormatMono))
	require.Equal(t, 16, BitsPerPixel(FormatRGB565))
	require.Equal(t, 32, BitsPerPixel(FormatARGB8888))
	require.Equal(t, 0, BitsPerPixel(FormatError))
}
