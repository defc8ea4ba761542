// File: cmd/wsd/main.go
// Command wsd runs a standalone WebSocket echo server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brinewave/ws/examples/echo"
	"github.com/brinewave/ws/server"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "bind address")
	port := flag.Int("port", 9223, "bind port")
	unixPath := flag.String("unix", "", "bind a Unix domain socket instead of TCP")
	bufferSize := flag.Int("buffer-size", 4096, "per-connection static read buffer size")
	maxMessageSize := flag.Int64("max-message-size", 65536, "maximum reassembled message size")
	shutdownTimeout := flag.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown deadline")
	flag.Parse()

	cfg := server.DefaultConfig()
	cfg.Address = *addr
	cfg.Port = *port
	cfg.UnixPath = *unixPath
	cfg.BufferSize = *bufferSize
	cfg.MaxMessageSize = *maxMessageSize

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("wsd: %v", err)
	}
	log.Printf("wsd: listening on %s", srv.Addr())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(echo.Factory{}) }()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("wsd: serve: %v", err)
		}
	case <-signalCh:
		log.Println("wsd: shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("wsd: shutdown: %v", err)
		}
	}
	log.Println("wsd: stopped")
}
