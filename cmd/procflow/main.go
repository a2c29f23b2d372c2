// cmd/procflow/main.go
//
// Entry point for the procflow CLI. Every subcommand resolves the project
// directory, loads .procflow/config.yaml and opens the process log before it
// touches the process registry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if code, ok := exitCode(err); ok {
			stop()
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
