/*
Renders the configured glTF scene (or a cube) with the bindless forward
renderer. The configuration is read from config.toml, or the file given as
the first argument.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

func main() {
	path := "config.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := core.LoadConfig(path)
	if err != nil {
		core.LogFatal("loading configuration: %s", err)
	}

	tb := testbed.NewTestGame()

	e, err := engine.New(cfg, tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("initialization failed: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	e.Shutdown()
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
