package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	fx "github.com/robotalks/drv.go/pkg/framework"
	"github.com/robotalks/drv.go/pkg/kernel/sim"
	"github.com/robotalks/drv.go/pkg/remote"
	"github.com/robotalks/drv.go/pkg/remote/mqtt"
	"github.com/robotalks/drv.go/pkg/remote/stream"
	"github.com/robotalks/drv.go/pkg/remote/websocket"
)

//go-build: CGO_ENABLED=0

var (
	mqttURL   string
	wsListen  string
	tcpListen string
)

func init() {
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL to serve the kernel on.")
	flag.StringVar(&wsListen, "ws", wsListen, "Listen address for WebSocket clients, e.g. :8155.")
	flag.StringVar(&tcpListen, "tcp", tcpListen, "Listen address for raw TCP clients, e.g. :8156.")
}

type wsListener struct {
	kernel *sim.Kernel
	addr   string
}

// Run implements Runnable.
func (l *wsListener) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/kernel", xws.Handler(func(conn *xws.Conn) {
		glog.Infof("ws client %s connected", conn.Request().RemoteAddr)
		server := remote.NewServer(l.kernel, websocket.New(conn))
		if err := server.Run(ctx); err != nil && err != context.Canceled {
			glog.Errorf("ws client: %v", err)
		}
	}))
	httpServer := &http.Server{Addr: l.addr, Handler: mux}
	return fx.RunWithContextCloser(ctx, httpServer, func() error {
		return httpServer.ListenAndServe()
	})
}

type tcpListener struct {
	kernel *sim.Kernel
	addr   string
}

// Run implements Runnable.
func (l *tcpListener) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	return fx.RunWithContextCloser(ctx, listener, func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			go func(conn net.Conn) {
				glog.Infof("tcp client %s connected", conn.RemoteAddr())
				server := remote.NewServer(l.kernel, stream.New(conn))
				if err := server.Run(ctx); err != nil && err != context.Canceled {
					glog.Errorf("tcp client: %v", err)
				}
			}(conn)
		}
	})
}

func main() {
	flag.Parse()
	if mqttURL == "" && wsListen == "" && tcpListen == "" {
		log.Fatalln("at least one of -mqtt, -ws or -tcp is required")
	}

	k := sim.NewKernel()
	k.Register(sim.ScreenDriverNum, sim.DefaultScreenDriver())

	runner := fx.NewRunner().HandleSignals()
	if mqttURL != "" {
		q, err := mqtt.NewQueueFromURL(mqttURL)
		if err != nil {
			log.Fatalln(err)
		}
		rw := mqtt.NewReadWriter(q).ForServer()
		if err = rw.Open(); err != nil {
			log.Fatalln(err)
		}
		runner.Go(fx.NamedRun("mqtt", remote.NewServer(k, rw)))
	}
	if wsListen != "" {
		runner.Go(fx.NamedRun("ws", &wsListener{kernel: k, addr: wsListen}))
	}
	if tcpListen != "" {
		runner.Go(fx.NamedRun("tcp", &tcpListener{kernel: k, addr: tcpListen}))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
