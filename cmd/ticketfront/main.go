// Package main implements the ticketfront command: an interactive console
// and one-shot sender for the train ticket backend, and the websocket bridge
// that puts the backend on the network.
package main

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Build information
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ticketfront"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		var failed *commandFailedError
		if !stderrors.As(err, &failed) {
			slog.Error("ticketfront failed", "error", err, "exit_code", 1)
		}
		os.Exit(1)
	}
}
