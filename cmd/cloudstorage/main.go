// Command cloudstorage serves resource uploads over HTTP and manages the
// configured storage container from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
