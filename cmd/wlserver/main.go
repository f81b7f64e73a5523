package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/op/go-logging"
	"github.com/urfave/cli"

	"github.com/kryptco/wlserver/internal/server"
	"github.com/kryptco/wlserver/internal/wlog"
	"github.com/kryptco/wlserver/protocol"
)

func recoverToLog(f func(), log *logging.Logger) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
		}
	}()
	f()
}

func serveCommand(c *cli.Context) error {
	cfg := server.DefaultConfig()
	if socket := c.String("socket"); socket != "" {
		cfg.SocketPath = socket
	}
	if c.Bool("debug") {
		os.Setenv("WL_DEBUG", "1")
	}

	log := wlog.Setup("wlserver", cfg.UseSyslog)

	srv := server.New(nil, cfg)
	protocol.RegisterDemoInterfaces(srv.Registry())

	if err := srv.Listen(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stopSignal
		log.Noticef("stopping on signal %v", sig)
		cancel()
	}()

	log.Notice("wlserver launched and listening")

	var runErr error
	recoverToLog(func() {
		runErr = srv.Run(ctx)
	}, log)
	if runErr != nil && runErr != context.Canceled {
		return cli.NewExitError(runErr.Error(), 1)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "wlserver"
	app.Usage = "run the compositor server core"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "listen on the Wayland display socket and dispatch client messages",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "socket", Usage: "override the display socket path (defaults to $WAYLAND_DISPLAY under $XDG_RUNTIME_DIR)"},
				cli.BoolFlag{Name: "debug", Usage: "enable request tracing (equivalent to WL_DEBUG=1)"},
			},
			Action: serveCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
