package sh

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/drv.go/pkg/driver/screen"
)

func init() {
	AddCmds(
		&infoCmd, &modesCmd, &formatsCmd,
		&setResolutionCmd, &setFormatCmd, &setRotationCmd,
		&brightnessCmd, &invertCmd,
		&initCmd, &colorCmd, &frameCmd, &fillCmd, &writeCmd,
	)
}

func argUint(c *ishell.Context, n int) (uint32, error) {
	if n >= len(c.Args) {
		return 0, fmt.Errorf("missing argument %d", n+1)
	}
	v, err := strconv.ParseUint(c.Args[n], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %v", n+1, err)
	}
	return uint32(v), nil
}

func run(c *ishell.Context, fn func(s *Shell) error) {
	if err := fn(ShellFrom(c)); err != nil {
		c.Err(err)
		return
	}
}

var infoCmd = ishell.Cmd{
	Name: "info",
	Help: "show current screen state",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			w, h, err := s.Screen.Resolution()
			if err != nil {
				return err
			}
			f, err := s.Screen.PixelFormat()
			if err != nil {
				return err
			}
			r, err := s.Screen.Rotation()
			if err != nil {
				return err
			}
			c.Printf("resolution %dx%d format %d (%d bpp) rotation %d setup=%v\n",
				w, h, f, screen.BitsPerPixel(f), r, s.Screen.SetupEnabled())
			return nil
		})
	},
}

var modesCmd = ishell.Cmd{
	Name: "modes",
	Help: "list supported resolutions",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			count, err := s.Screen.SupportedResolutions()
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				w, h, err := s.Screen.SupportedResolution(uint32(i))
				if err != nil {
					return err
				}
				c.Printf("%d: %dx%d\n", i, w, h)
			}
			return nil
		})
	},
}

var formatsCmd = ishell.Cmd{
	Name: "formats",
	Help: "list supported pixel formats",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			count, err := s.Screen.SupportedPixelFormats()
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				f, err := s.Screen.SupportedPixelFormat(uint32(i))
				if err != nil {
					return err
				}
				c.Printf("%d: format %d (%d bpp)\n", i, f, screen.BitsPerPixel(f))
			}
			return nil
		})
	},
}

var setResolutionCmd = ishell.Cmd{
	Name: "set-resolution",
	Help: "set-resolution <width> <height>",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			w, err := argUint(c, 0)
			if err != nil {
				return err
			}
			h, err := argUint(c, 1)
			if err != nil {
				return err
			}
			return s.Screen.SetResolution(w, h)
		})
	},
}

var setFormatCmd = ishell.Cmd{
	Name: "set-format",
	Help: "set-format <format>",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			f, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.SetPixelFormat(screen.PixelFormat(f))
		})
	},
}

var setRotationCmd = ishell.Cmd{
	Name: "set-rotation",
	Help: "set-rotation <0|1|2|3>",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			r, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.SetRotation(screen.Rotation(r))
		})
	},
}

var brightnessCmd = ishell.Cmd{
	Name: "brightness",
	Help: "brightness <level>",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			level, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.SetBrightness(level)
		})
	},
}

var invertCmd = ishell.Cmd{
	Name: "invert",
	Help: "invert on|off",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			if len(c.Args) < 1 {
				return fmt.Errorf("invert on|off")
			}
			if c.Args[0] == "on" {
				return s.Screen.InvertOn()
			}
			return s.Screen.InvertOff()
		})
	},
}

var initCmd = ishell.Cmd{
	Name: "init",
	Help: "init <bytes>: allocate and grant the framebuffer",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			size, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.Init(int(size))
		})
	},
}

var colorCmd = ishell.Cmd{
	Name: "color",
	Help: "color <pos> <value>: write one pixel word into the buffer",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			pos, err := argUint(c, 0)
			if err != nil {
				return err
			}
			v, err := argUint(c, 1)
			if err != nil {
				return err
			}
			return s.Screen.SetColor(int(pos), uint16(v))
		})
	},
}

var frameCmd = ishell.Cmd{
	Name: "frame",
	Help: "frame <x> <y> <width> <height>: set the write window",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			var args [4]uint32
			for i := range args {
				v, err := argUint(c, i)
				if err != nil {
					return err
				}
				args[i] = v
			}
			return s.Screen.SetFrame(uint16(args[0]), uint16(args[1]),
				uint16(args[2]), uint16(args[3]))
		})
	},
}

var fillCmd = ishell.Cmd{
	Name: "fill",
	Help: "fill <color>: flood the write window",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			v, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.Fill(uint16(v))
		})
	},
}

var writeCmd = ishell.Cmd{
	Name: "write",
	Help: "write <bytes>: push buffer contents to the screen",
	Func: func(c *ishell.Context) {
		run(c, func(s *Shell) error {
			n, err := argUint(c, 0)
			if err != nil {
				return err
			}
			return s.Screen.Write(int(n))
		})
	},
}
