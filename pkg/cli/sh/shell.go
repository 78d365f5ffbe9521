// Package sh provides the ishell backed interactive shell over a screen
// driver client.
package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	fx "github.com/robotalks/drv.go/pkg/framework"
	"github.com/robotalks/drv.go/pkg/driver/screen"
	"github.com/robotalks/drv.go/pkg/kernel"
	"github.com/robotalks/drv.go/pkg/kernel/sim"
	"github.com/robotalks/drv.go/pkg/remote"
	"github.com/robotalks/drv.go/pkg/remote/mqtt"
	"github.com/robotalks/drv.go/pkg/remote/stream"
	"github.com/robotalks/drv.go/pkg/remote/websocket"
)

// Shell wraps ishell around one screen client.
type Shell struct {
	Interactive bool

	Shell  *ishell.Shell
	Screen *screen.Screen
}

const shellKey = "$shell"

var (
	// flags

	evalOnly  bool
	remoteURL string

	// commands
	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&remoteURL, "remote", remoteURL,
		"Remote kernel endpoint (mqtt://, ws:// or tcp://). Empty runs a built-in simulated kernel.")
}

// AddCmds is used by command providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell over a screen client.
func New(scr *screen.Screen) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Screen:      scr,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("screen > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// NewTransport builds a transport from the -remote flag: a built-in
// simulated kernel when empty, otherwise a tunnel to the endpoint.
// Returned runnables must be spawned before the transport is used.
func NewTransport() (kernel.Transport, []fx.Runnable, error) {
	if remoteURL == "" {
		k := sim.NewKernel()
		k.Register(sim.ScreenDriverNum, sim.DefaultScreenDriver())
		return k, nil, nil
	}
	switch {
	case strings.HasPrefix(remoteURL, "mqtt://"):
		q, err := mqtt.NewQueueFromURL(withClientID(remoteURL))
		if err != nil {
			return nil, nil, err
		}
		rw := mqtt.NewReadWriter(q).ForClient()
		if err = rw.Open(); err != nil {
			return nil, nil, err
		}
		t := remote.New(rw)
		return t, []fx.Runnable{fx.NamedRun("mqtt-tunnel", t)}, nil
	case strings.HasPrefix(remoteURL, "ws://"), strings.HasPrefix(remoteURL, "wss://"):
		rw, err := websocket.Dial(remoteURL, "http://localhost/")
		if err != nil {
			return nil, nil, err
		}
		t := remote.New(rw)
		return t, []fx.Runnable{fx.NamedRun("ws-tunnel", t)}, nil
	case strings.HasPrefix(remoteURL, "tcp://"):
		conn, err := net.Dial("tcp", strings.TrimPrefix(remoteURL, "tcp://"))
		if err != nil {
			return nil, nil, err
		}
		t := remote.New(stream.New(conn))
		return t, []fx.Runnable{fx.NamedRun("tcp-tunnel", t)}, nil
	}
	return nil, nil, fmt.Errorf("unsupported remote endpoint %q", remoteURL)
}

// withClientID appends a stable machine-derived client-id when the URL
// does not name one, so reconnects keep the broker session.
func withClientID(brokerURL string) string {
	u, err := url.Parse(brokerURL)
	if err != nil || u.Query().Get("client-id") != "" {
		return brokerURL
	}
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return brokerURL
	}
	q := u.Query()
	q.Set("client-id", "screensh-"+id)
	u.RawQuery = q.Encode()
	return u.String()
}

// Main is the entry point shared by shell binaries.
func Main() {
	flag.Parse()

	transport, runnables, err := NewTransport()
	if err != nil {
		log.Fatalln(err)
	}
	runner := fx.NewRunnerWith(context.Background())
	runner.Go(runnables...)

	s := New(screen.New(transport))
	if args := flag.Args(); len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if !s.Interactive {
		return
	}
	s.Shell.Run()
}
