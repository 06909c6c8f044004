// Command courierd runs the courier store-and-forward agent: it owns the
// durable queue, watches connectivity, replays queued actions on reconnect,
// and answers CLI requests over the IPC socket. `courier start` launches this
// binary detached; running it directly keeps it in the foreground.
package main

import (
	"context"
	"flag"
	"log"

	"courier/internal/agentrun"
	"courier/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	socketPath := flag.String("socket", "", "Path to the IPC socket")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := agentrun.Run(context.Background(), cfg, agentrun.Options{SocketPath: *socketPath}); err != nil {
		log.Fatalf("run agent: %v", err)
	}
}
