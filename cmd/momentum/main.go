// Command momentum ranks equity panels by momentum and prices put
// structures for the downtrends it finds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"momentum-options/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
